package api

import (
	"context"
	"time"

	"github.com/waqtapp/waqt/internal/notify"
)

// Pending lists the installed reminder triggers.
func (a *Api) Pending(ctx context.Context) ([]notify.Pending, error) {
	return a.reconciler.Pending(ctx)
}

// Rehydrate reinstalls reminders from the current settings and reports
// any failure to the caller.
func (a *Api) Rehydrate(ctx context.Context) (int, error) {
	if err := a.reconciler.Rehydrate(ctx, a.settings.Prayer()); err != nil {
		return 0, err
	}
	pending, err := a.reconciler.Pending(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// DefaultHistoryLimit caps History when the caller gives no limit.
const DefaultHistoryLimit = 20

// History lists recently fired and missed reminders.
func (a *Api) History(ctx context.Context, limit int) ([]notify.Fired, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return a.reconciler.History(ctx, limit)
}

// SendTest sends a test reminder now, or after delay.
func (a *Api) SendTest(ctx context.Context, delay time.Duration) (notify.TriggerSpec, error) {
	return a.reconciler.SendTest(ctx, delay)
}
