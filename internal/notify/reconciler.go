package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/waqtapp/waqt/pkg/logger"
	"github.com/waqtapp/waqt/pkg/prayer"
)

// TestNotificationID is the trigger id of a scheduled test reminder.
const TestNotificationID = "test-notification"

// ErrNoImmediateDelivery is returned for an immediate test notification on
// a device that can only schedule.
var ErrNoImmediateDelivery = errors.New("device cannot deliver immediately")

// ErrNoHistory is returned by History on a device that keeps no journal.
var ErrNoHistory = errors.New("device keeps no delivery history")

// Reconciler is the only writer of the device's trigger set.
type Reconciler struct {
	device  Device
	calc    *prayer.Calculator
	planner *Planner
	msgs    *Messages
	log     logger.Logger

	// mu serialises replacements so two installs never interleave.
	mu sync.Mutex
}

func NewReconciler(device Device, calc *prayer.Calculator, msgs *Messages, l logger.Logger) *Reconciler {
	if msgs == nil {
		msgs = DefaultMessages()
	}
	return &Reconciler{
		device:  device,
		calc:    calc,
		planner: NewPlanner(msgs),
		msgs:    msgs,
		log:     logger.OrNop(l),
	}
}

// Planner returns the planner used by Rehydrate.
func (r *Reconciler) Planner() *Planner { return r.planner }

// Reconcile replaces every managed trigger with specs. A cancellation
// failure returns before anything is scheduled, leaving the previous set in
// place. Scheduling failures after that are joined and returned without
// rollback; the next rehydrate repairs the set.
func (r *Reconciler) Reconcile(ctx context.Context, specs []TriggerSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.device.CancelAllManaged(ctx); err != nil {
		return fmt.Errorf("cancel managed triggers: %w", err)
	}
	var errs []error
	for _, s := range specs {
		if _, err := r.device.ScheduleAt(ctx, s.ID, s.FiresAt, Payload{Title: s.Title, Body: s.Body}); err != nil {
			errs = append(errs, fmt.Errorf("schedule %s: %w", s.ID, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("installed %d of %d triggers: %w", len(specs)-len(errs), len(specs), err)
	}
	return nil
}

// Plan computes today's and tomorrow's schedules for s and plans their
// triggers without touching the device.
func (r *Reconciler) Plan(s prayer.Settings) ([]TriggerSpec, error) {
	now := r.calc.Now()
	today, err := r.calc.ComputeSettings(s, now)
	if err != nil {
		return nil, fmt.Errorf("compute today: %w", err)
	}
	tomorrow, err := r.calc.ComputeSettings(s, now.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("compute tomorrow: %w", err)
	}
	return r.planner.Plan([]prayer.DaySchedule{today, tomorrow}, now), nil
}

// Rehydrate recomputes and reinstalls the trigger set for s.
func (r *Reconciler) Rehydrate(ctx context.Context, s prayer.Settings) error {
	specs, err := r.Plan(s)
	if err != nil {
		return err
	}
	if err := r.Reconcile(ctx, specs); err != nil {
		return err
	}
	r.log.Info("notify: installed %d triggers", len(specs))
	return nil
}

// Pending lists installed triggers.
func (r *Reconciler) Pending(ctx context.Context) ([]Pending, error) {
	return r.device.ListPending(ctx)
}

// History lists fired and missed reminders, newest first.
func (r *Reconciler) History(ctx context.Context, limit int) ([]Fired, error) {
	h, ok := r.device.(Historian)
	if !ok {
		return nil, ErrNoHistory
	}
	return h.History(ctx, limit)
}

// SendTest delivers a test reminder now when delay is zero, or schedules it
// under TestNotificationID. The test trigger is managed: the next
// reconcile removes it if it has not fired.
func (r *Reconciler) SendTest(ctx context.Context, delay time.Duration) (TriggerSpec, error) {
	now := r.calc.Now()
	spec := TriggerSpec{
		ID:      TestNotificationID,
		FiresAt: now.Add(delay),
		Title:   r.msgs.Test.Title,
		Body:    r.msgs.Test.Body,
	}
	if delay <= 0 {
		im, ok := r.device.(Immediate)
		if !ok {
			return TriggerSpec{}, ErrNoImmediateDelivery
		}
		n := Notification{ID: spec.ID, Title: spec.Title, Body: spec.Body, FiresAt: now, DeliveredAt: now}
		return spec, im.Notify(ctx, n)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.device.ScheduleAt(ctx, spec.ID, spec.FiresAt, Payload{Title: spec.Title, Body: spec.Body}); err != nil {
		return TriggerSpec{}, err
	}
	return spec, nil
}
