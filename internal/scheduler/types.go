package scheduler

import "time"

// Kind separates reminder triggers from internal wake events so that
// clearing reminders never drops the daily wake.
type Kind int

const (
	KindTrigger Kind = iota
	KindWake
)

func (k Kind) String() string {
	if k == KindWake {
		return "wake"
	}
	return "trigger"
}

// Event is one queued firing.
type Event struct {
	ID     string
	Kind   Kind
	FireAt time.Time
	// CronExpr makes the event recurring. Empty means one-shot.
	CronExpr string
	Title    string
	Body     string
}
