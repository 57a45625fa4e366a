package prayer

import (
	"fmt"
	"math"
	"time"
)

// Resolve returns the first item of schedule whose adjusted time is strictly
// after now. When every item has passed, the first item is returned shifted
// by 24 hours with RolledToNextDay set. The result is false only for an
// empty schedule.
func Resolve(schedule DaySchedule, now time.Time) (NextEvent, bool) {
	if len(schedule) == 0 {
		return NextEvent{}, false
	}
	for i, item := range schedule {
		if item.AdjustedTime.After(now) {
			return NextEvent{Item: item, Index: i}, true
		}
	}
	first := schedule[0]
	first.BaseTime = first.BaseTime.Add(24 * time.Hour)
	first.AdjustedTime = first.AdjustedTime.Add(24 * time.Hour)
	return NextEvent{Item: first, Index: 0, RolledToNextDay: true}, true
}

// Countdown formats the time left until target as HH:MM:SS. A zero target
// yields "--:--:--" and a passed target "00:00:00".
func Countdown(target, now time.Time) string {
	if target.IsZero() {
		return "--:--:--"
	}
	d := target.Sub(now)
	if d <= 0 {
		return "00:00:00"
	}
	s := int64(math.Floor(d.Seconds()))
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
