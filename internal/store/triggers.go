package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TriggerState is the journal state of a trigger.
type TriggerState string

const (
	StatePending   TriggerState = "pending"
	StateDelivered TriggerState = "delivered"
	StateMissed    TriggerState = "missed"
)

var ErrTriggerNotFound = errors.New("trigger not found")

// Trigger is a journaled reminder.
type Trigger struct {
	ID        string
	FireAt    time.Time
	Title     string
	Body      string
	State     TriggerState
	UpdatedAt time.Time
}

func unixMilli(t time.Time) int64 { return t.UnixMilli() }

func fromMilli(ms int64) time.Time { return time.UnixMilli(ms) }

// UpsertPending records t as pending, replacing any row with the same id.
func (s *Store) UpsertPending(ctx context.Context, t Trigger, now time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO triggers (id, fire_at, title, body, state, updated_at)
		VALUES (?, ?, ?, ?, 'pending', ?)
		ON CONFLICT(id) DO UPDATE SET
			fire_at = excluded.fire_at,
			title = excluded.title,
			body = excluded.body,
			state = 'pending',
			updated_at = excluded.updated_at`,
		t.ID, unixMilli(t.FireAt), t.Title, t.Body, unixMilli(now),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert trigger %s: %w", t.ID, err)
	}
	return nil
}

// DeletePending removes every pending trigger and returns how many were
// removed. Delivered and missed rows are kept as history.
func (s *Store) DeletePending(ctx context.Context) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM triggers WHERE state = 'pending'`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending triggers: %w", err)
	}
	return res.RowsAffected()
}

// ListPending returns pending triggers ordered by fire time.
func (s *Store) ListPending(ctx context.Context) ([]Trigger, error) {
	return s.listByState(ctx, StatePending)
}

// ListByState returns triggers in state ordered by fire time.
func (s *Store) ListByState(ctx context.Context, state TriggerState) ([]Trigger, error) {
	return s.listByState(ctx, state)
}

func (s *Store) listByState(ctx context.Context, state TriggerState) ([]Trigger, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, fire_at, title, body, state, updated_at
		FROM triggers
		WHERE state = ?
		ORDER BY fire_at ASC, id ASC`, string(state))
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}
	defer rows.Close()

	var out []Trigger
	for rows.Next() {
		var (
			t               Trigger
			fireAt, updated int64
			st              string
		)
		if err := rows.Scan(&t.ID, &fireAt, &t.Title, &t.Body, &st, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}
		t.FireAt = fromMilli(fireAt)
		t.UpdatedAt = fromMilli(updated)
		t.State = TriggerState(st)
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTrigger returns a single trigger by id.
func (s *Store) GetTrigger(ctx context.Context, id string) (Trigger, error) {
	var (
		t               Trigger
		fireAt, updated int64
		st              string
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, fire_at, title, body, state, updated_at FROM triggers WHERE id = ?`, id,
	).Scan(&t.ID, &fireAt, &t.Title, &t.Body, &st, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Trigger{}, fmt.Errorf("%w: %s", ErrTriggerNotFound, id)
	}
	if err != nil {
		return Trigger{}, fmt.Errorf("failed to get trigger %s: %w", id, err)
	}
	t.FireAt = fromMilli(fireAt)
	t.UpdatedAt = fromMilli(updated)
	t.State = TriggerState(st)
	return t, nil
}

// MarkState moves the listed triggers to state.
func (s *Store) MarkState(ctx context.Context, state TriggerState, now time.Time, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(ids)+2)
	args = append(args, string(state), unixMilli(now))
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	_, err := s.DB.ExecContext(ctx,
		`UPDATE triggers SET state = ?, updated_at = ? WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to mark triggers %s: %w", state, err)
	}
	return nil
}

// PruneHistory deletes delivered and missed triggers that fired before cutoff.
func (s *Store) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM triggers WHERE state != 'pending' AND fire_at < ?`, unixMilli(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to prune triggers: %w", err)
	}
	return res.RowsAffected()
}
