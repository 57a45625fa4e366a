package store

import (
	"context"
	"fmt"
	"time"
)

// Delivery is one attempt to hand a fired trigger to a sink.
type Delivery struct {
	ID          int64
	TriggerID   string
	Sink        string
	DeliveredAt time.Time
	// Error is empty on success.
	Error string
}

func (s *Store) RecordDelivery(ctx context.Context, d *Delivery) error {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO deliveries (trigger_id, sink, delivered_at, error) VALUES (?, ?, ?, ?)`,
		d.TriggerID, d.Sink, unixMilli(d.DeliveredAt), d.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	d.ID = id
	return nil
}

// RecentDeliveries returns up to limit deliveries, newest first.
func (s *Store) RecentDeliveries(ctx context.Context, limit int) ([]Delivery, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, trigger_id, sink, delivered_at, error
		FROM deliveries
		ORDER BY delivered_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var (
			d  Delivery
			at int64
		)
		if err := rows.Scan(&d.ID, &d.TriggerID, &d.Sink, &at, &d.Error); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		d.DeliveredAt = fromMilli(at)
		out = append(out, d)
	}
	return out, rows.Err()
}
