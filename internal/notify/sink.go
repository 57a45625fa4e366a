package notify

import (
	"context"
	"time"

	"github.com/waqtapp/waqt/pkg/logger"
)

// Notification is a fired reminder handed to sinks.
type Notification struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	FiresAt     time.Time `json:"firesAt"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// Sink is a delivery channel for fired reminders.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n Notification) error
}

// LogSink writes reminders to the daemon log.
type LogSink struct {
	log logger.Logger
}

func NewLogSink(l logger.Logger) *LogSink {
	return &LogSink{log: logger.OrNop(l)}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, n Notification) error {
	s.log.Info("reminder %s: %s: %s", n.ID, n.Title, n.Body)
	return nil
}
