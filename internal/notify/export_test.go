package notify

import (
	"time"

	"github.com/waqtapp/waqt/internal/scheduler"
)

func wakeNow(id string) scheduler.Event {
	return scheduler.Event{ID: id, Kind: scheduler.KindWake, FireAt: time.Now()}
}
