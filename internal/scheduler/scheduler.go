package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/adhocore/gronx"
)

const maxSleepCap = 60 * time.Second

// ErrStopped is returned by request/response calls after the loop exited.
var ErrStopped = errors.New("scheduler stopped")

type clearRequest struct {
	kind  Kind
	reply chan int
}

type listRequest struct {
	kind  Kind
	reply chan []Event
}

// Scheduler owns the event heap. All access goes through its channels.
type Scheduler struct {
	addChan    chan Event
	removeChan chan string
	clearChan  chan clearRequest
	listChan   chan listRequest
	ctx        context.Context
	done       chan struct{}
	now        func() time.Time
}

// New starts the loop. onFire runs on the loop goroutine and must not call
// back into the Scheduler synchronously. The loop exits when ctx is done.
func New(ctx context.Context, onFire func(Event)) *Scheduler {
	s := &Scheduler{
		addChan:    make(chan Event, 64),
		removeChan: make(chan string, 64),
		clearChan:  make(chan clearRequest),
		listChan:   make(chan listRequest),
		ctx:        ctx,
		done:       make(chan struct{}),
		now:        time.Now,
	}
	go s.run(onFire)
	return s
}

// Done is closed once the loop has exited.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// Add queues e, replacing any queued event with the same ID.
func (s *Scheduler) Add(e Event) {
	select {
	case s.addChan <- e:
	case <-s.ctx.Done():
	}
}

// Remove drops the queued event with id, if any.
func (s *Scheduler) Remove(id string) {
	select {
	case s.removeChan <- id:
	case <-s.ctx.Done():
	}
}

// Clear drops every queued event of kind. Adds and removes sent before
// Clear are applied first.
func (s *Scheduler) Clear(ctx context.Context, kind Kind) (int, error) {
	req := clearRequest{kind: kind, reply: make(chan int, 1)}
	select {
	case s.clearChan <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.done:
		return 0, ErrStopped
	}
	select {
	case n := <-req.reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-s.done:
		return 0, ErrStopped
	}
}

// List returns the queued events of kind sorted by FireAt.
func (s *Scheduler) List(ctx context.Context, kind Kind) ([]Event, error) {
	req := listRequest{kind: kind, reply: make(chan []Event, 1)}
	select {
	case s.listChan <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrStopped
	}
	select {
	case events := <-req.reply:
		return events, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrStopped
	}
}

// drainMutations applies buffered adds and removes so that request/response
// calls observe every mutation sent before them.
func (s *Scheduler) drainMutations(h *eventHeap) {
	for {
		select {
		case e := <-s.addChan:
			heapRemoveByID(h, e.ID)
			heapPush(h, e)
		case id := <-s.removeChan:
			heapRemoveByID(h, id)
		default:
			return
		}
	}
}

func (s *Scheduler) run(onFire func(Event)) {
	defer close(s.done)
	h := &eventHeap{}
	heap.Init(h)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}
		if h.Len() == 0 {
			return nil
		}
		dur := (*h)[0].FireAt.Sub(s.now())
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		timer = time.NewTimer(dur)
		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-s.ctx.Done():
			return

		case e := <-s.addChan:
			heapRemoveByID(h, e.ID)
			heapPush(h, e)
			timerCh = resetTimer()

		case id := <-s.removeChan:
			heapRemoveByID(h, id)
			timerCh = resetTimer()

		case req := <-s.clearChan:
			s.drainMutations(h)
			req.reply <- heapRemoveKind(h, req.kind)
			timerCh = resetTimer()

		case req := <-s.listChan:
			s.drainMutations(h)
			var out []Event
			for _, e := range *h {
				if e.Kind == req.kind {
					out = append(out, e)
				}
			}
			sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
			req.reply <- out
			timerCh = resetTimer()

		case <-timerCh:
			now := s.now()
			for h.Len() > 0 && !(*h)[0].FireAt.After(now) {
				e := heapPop(h)
				onFire(e)
				if e.CronExpr != "" {
					if next, err := nextCronOccurrence(e.CronExpr, now); err == nil {
						e.FireAt = next
						heapPush(h, e)
					}
				}
			}
			timerCh = resetTimer()
		}
	}
}

// nextCronOccurrence returns the next tick of expr strictly after start.
func nextCronOccurrence(expr string, start time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, start, false)
}

// ValidCron reports whether expr parses and fires within the next year.
func ValidCron(expr string, from time.Time) bool {
	if !gronx.New().IsValid(expr) {
		return false
	}
	next, err := nextCronOccurrence(expr, from)
	if err != nil {
		return false
	}
	return next.Before(from.Add(365 * 24 * time.Hour))
}

// WakeEvent builds the recurring wake with its first occurrence after now.
func WakeEvent(id, expr string, now time.Time) (Event, error) {
	next, err := nextCronOccurrence(expr, now)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: id, Kind: KindWake, FireAt: next, CronExpr: expr}, nil
}

// LoadSchedules splits persisted events at start-up. One-shot events whose
// time has passed are returned in missed and never fired late. Recurring
// events that were missed are re-queued at their next occurrence.
func LoadSchedules(events []Event, now time.Time) (missed []Event, future []Event) {
	for _, e := range events {
		if e.FireAt.IsZero() {
			continue
		}
		if !e.FireAt.After(now) {
			missed = append(missed, e)
			if e.CronExpr != "" {
				if next, err := nextCronOccurrence(e.CronExpr, now); err == nil {
					e.FireAt = next
					future = append(future, e)
				}
			}
			continue
		}
		future = append(future, e)
	}
	return missed, future
}
