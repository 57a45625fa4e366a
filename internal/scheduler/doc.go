// Package scheduler is the in-process trigger device: a single goroutine
// holding a min-heap of timed events, sorted by fire time, with a 60-second
// max sleep so NTP steps, DST changes and host suspend are noticed promptly.
//
// Events carry an ID; adding an event whose ID is already queued replaces
// it, so the heap never holds two entries for one ID. Recurring wake events
// use cron expressions and are re-queued after each firing. The heap is not
// persisted; callers rebuild it with LoadSchedules on start.
package scheduler
