package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/waqtapp/waqt/internal/scheduler"
	"github.com/waqtapp/waqt/internal/store"
	"github.com/waqtapp/waqt/pkg/logger"
)

// Payload is the user-visible content of a trigger.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Pending is an installed trigger.
type Pending struct {
	ID      string    `json:"id"`
	FiresAt time.Time `json:"firesAt"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
}

// Device is the timed-trigger capability the reconciler drives.
type Device interface {
	ScheduleAt(ctx context.Context, id string, at time.Time, p Payload) (string, error)
	// CancelAllManaged removes every reminder trigger. Wake events stay.
	CancelAllManaged(ctx context.Context) error
	ListPending(ctx context.Context) ([]Pending, error)
}

// Fired is a reminder that left the pending set, with its delivery attempts.
type Fired struct {
	ID         string    `json:"id"`
	FiresAt    time.Time `json:"firesAt"`
	Title      string    `json:"title"`
	State      string    `json:"state"`
	Deliveries []Attempt `json:"deliveries,omitempty"`
}

// Attempt is one hand-off to a sink.
type Attempt struct {
	Sink  string    `json:"sink"`
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}

// Historian is implemented by devices that journal what they fired.
type Historian interface {
	History(ctx context.Context, limit int) ([]Fired, error)
}

// Immediate is implemented by devices that can deliver right away.
type Immediate interface {
	Notify(ctx context.Context, n Notification) error
}

const deliveryTimeout = 30 * time.Second

// LocalDevice fires triggers from the in-process scheduler, journals them in
// the store so they survive restarts, and hands fired reminders to sinks.
type LocalDevice struct {
	ctx     context.Context
	sched   *scheduler.Scheduler
	journal *store.Store
	log     logger.Logger
	now     func() time.Time

	mu          sync.RWMutex
	sinks       []Sink
	onDelivered func(Notification)
	onWake      func(id string)

	wg sync.WaitGroup
}

// NewLocalDevice starts the scheduler loop; it stops when ctx is done.
func NewLocalDevice(ctx context.Context, journal *store.Store, l logger.Logger) *LocalDevice {
	d := &LocalDevice{
		ctx:     ctx,
		journal: journal,
		log:     logger.OrNop(l),
		now:     time.Now,
	}
	d.sched = scheduler.New(ctx, d.fire)
	return d
}

// AddSink registers a delivery channel.
func (d *LocalDevice) AddSink(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, s)
}

// OnDelivered registers a hook run after each reminder has gone to every sink.
func (d *LocalDevice) OnDelivered(fn func(Notification)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onDelivered = fn
}

// OnWake registers the hook for recurring wake events.
func (d *LocalDevice) OnWake(fn func(id string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onWake = fn
}

// AddWake queues a recurring wake event.
func (d *LocalDevice) AddWake(id, cronExpr string) error {
	e, err := scheduler.WakeEvent(id, cronExpr, d.now())
	if err != nil {
		return fmt.Errorf("wake %s: %w", id, err)
	}
	d.sched.Add(e)
	return nil
}

func (d *LocalDevice) ScheduleAt(ctx context.Context, id string, at time.Time, p Payload) (string, error) {
	if err := d.journal.UpsertPending(ctx, store.Trigger{ID: id, FireAt: at, Title: p.Title, Body: p.Body}, d.now()); err != nil {
		return "", err
	}
	d.sched.Add(scheduler.Event{ID: id, Kind: scheduler.KindTrigger, FireAt: at, Title: p.Title, Body: p.Body})
	return id, nil
}

func (d *LocalDevice) CancelAllManaged(ctx context.Context) error {
	if _, err := d.journal.DeletePending(ctx); err != nil {
		return err
	}
	if _, err := d.sched.Clear(ctx, scheduler.KindTrigger); err != nil {
		return fmt.Errorf("clear scheduler: %w", err)
	}
	return nil
}

func (d *LocalDevice) ListPending(ctx context.Context) ([]Pending, error) {
	events, err := d.sched.List(ctx, scheduler.KindTrigger)
	if err != nil {
		return nil, err
	}
	out := make([]Pending, 0, len(events))
	for _, e := range events {
		out = append(out, Pending{ID: e.ID, FiresAt: e.FireAt, Title: e.Title, Body: e.Body})
	}
	return out, nil
}

// Restore reloads journaled triggers after a restart. Triggers whose time
// passed while the daemon was down are marked missed and not delivered.
func (d *LocalDevice) Restore(ctx context.Context) (restored, missed int, err error) {
	rows, err := d.journal.ListPending(ctx)
	if err != nil {
		return 0, 0, err
	}
	events := make([]scheduler.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, scheduler.Event{ID: r.ID, Kind: scheduler.KindTrigger, FireAt: r.FireAt, Title: r.Title, Body: r.Body})
	}
	now := d.now()
	lost, future := scheduler.LoadSchedules(events, now)
	ids := make([]string, 0, len(lost))
	for _, e := range lost {
		ids = append(ids, e.ID)
		d.log.Warning("notify: trigger %s was due at %s while the daemon was down", e.ID, e.FireAt.Format(time.RFC3339))
	}
	if err := d.journal.MarkState(ctx, store.StateMissed, now, ids...); err != nil {
		return 0, 0, err
	}
	for _, e := range future {
		d.sched.Add(e)
	}
	return len(future), len(lost), nil
}

// Notify delivers n to every sink now, without journaling a trigger.
func (d *LocalDevice) Notify(ctx context.Context, n Notification) error {
	if n.DeliveredAt.IsZero() {
		n.DeliveredAt = d.now()
	}
	return d.deliver(ctx, n)
}

// History returns up to limit delivered or missed reminders, newest first.
func (d *LocalDevice) History(ctx context.Context, limit int) ([]Fired, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []store.Trigger
	for _, state := range []store.TriggerState{store.StateDelivered, store.StateMissed} {
		r, err := d.journal.ListByState(ctx, state)
		if err != nil {
			return nil, err
		}
		rows = append(rows, r...)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].FireAt.After(rows[j].FireAt) })
	if len(rows) > limit {
		rows = rows[:limit]
	}

	// One attempt per sink per reminder; older attempts fall outside the window.
	d.mu.RLock()
	window := limit * (len(d.sinks) + 1)
	d.mu.RUnlock()
	attempts, err := d.journal.RecentDeliveries(ctx, window)
	if err != nil {
		return nil, err
	}
	byID := make(map[string][]Attempt)
	for i := len(attempts) - 1; i >= 0; i-- {
		a := attempts[i]
		byID[a.TriggerID] = append(byID[a.TriggerID], Attempt{Sink: a.Sink, At: a.DeliveredAt, Error: a.Error})
	}

	out := make([]Fired, 0, len(rows))
	for _, r := range rows {
		out = append(out, Fired{ID: r.ID, FiresAt: r.FireAt, Title: r.Title, State: string(r.State), Deliveries: byID[r.ID]})
	}
	return out, nil
}

// Wait blocks until in-flight deliveries finish.
func (d *LocalDevice) Wait() {
	d.wg.Wait()
}

// fire runs on the scheduler goroutine and must not block on it.
func (d *LocalDevice) fire(e scheduler.Event) {
	d.mu.RLock()
	onWake := d.onWake
	d.mu.RUnlock()

	if e.Kind == scheduler.KindWake {
		if onWake != nil {
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				onWake(e.ID)
			}()
		}
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(d.ctx), deliveryTimeout)
		defer cancel()
		if !d.stillPending(ctx, e.ID) {
			return
		}
		n := Notification{ID: e.ID, Title: e.Title, Body: e.Body, FiresAt: e.FireAt, DeliveredAt: d.now()}
		if err := d.deliver(ctx, n); err != nil {
			d.log.Error("notify: deliver %s: %v", e.ID, err)
		}
		if err := d.journal.MarkState(ctx, store.StateDelivered, d.now(), e.ID); err != nil {
			d.log.Error("notify: mark %s delivered: %v", e.ID, err)
		}
		d.mu.RLock()
		hook := d.onDelivered
		d.mu.RUnlock()
		if hook != nil {
			hook(n)
		}
	}()
}

// stillPending guards against a trigger cancelled in the journal after the
// scheduler had already popped it. A journal read error does not block
// delivery.
func (d *LocalDevice) stillPending(ctx context.Context, id string) bool {
	t, err := d.journal.GetTrigger(ctx, id)
	switch {
	case errors.Is(err, store.ErrTriggerNotFound):
		d.log.Info("notify: %s was cancelled, not delivering", id)
		return false
	case err != nil:
		d.log.Warning("notify: check %s: %v", id, err)
		return true
	case t.State != store.StatePending:
		d.log.Info("notify: %s already %s, not delivering", id, t.State)
		return false
	}
	return true
}

// deliver hands n to every sink, journaling each attempt. It fails only if
// every sink failed.
func (d *LocalDevice) deliver(ctx context.Context, n Notification) error {
	d.mu.RLock()
	sinks := append([]Sink(nil), d.sinks...)
	d.mu.RUnlock()

	var lastErr error
	ok := 0
	for _, s := range sinks {
		rec := &store.Delivery{TriggerID: n.ID, Sink: s.Name(), DeliveredAt: d.now()}
		if err := s.Deliver(ctx, n); err != nil {
			rec.Error = err.Error()
			lastErr = fmt.Errorf("%s: %w", s.Name(), err)
			d.log.Warning("notify: sink %s failed for %s: %v", s.Name(), n.ID, err)
		} else {
			ok++
		}
		if err := d.journal.RecordDelivery(ctx, rec); err != nil {
			d.log.Error("notify: record delivery: %v", err)
		}
	}
	if ok == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

var (
	_ Device    = (*LocalDevice)(nil)
	_ Immediate = (*LocalDevice)(nil)
	_ Historian = (*LocalDevice)(nil)
)
