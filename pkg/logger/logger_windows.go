//go:build windows

package logger

import (
	"fmt"

	"golang.org/x/sys/windows/svc/eventlog"
)

// EventSource is the Event Log source name the service registers.
const EventSource = "Waqt"

const (
	EventIDInfo    uint32 = 1
	EventIDWarning uint32 = 2
	EventIDError   uint32 = 3
)

// EventLogWriter is the subset of *eventlog.Log used by EventLogger.
type EventLogWriter interface {
	Info(eid uint32, msg string) error
	Warning(eid uint32, msg string) error
	Error(eid uint32, msg string) error
	Close() error
}

// EventLogger writes to the Windows Event Log. The source must already be
// registered with eventlog.InstallAsEventCreate.
type EventLogger struct {
	w EventLogWriter
}

func NewEventLogger(source string) (*EventLogger, error) {
	l, err := eventlog.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return NewEventLoggerWithWriter(l), nil
}

func NewEventLoggerWithWriter(w EventLogWriter) *EventLogger {
	return &EventLogger{w: w}
}

// Write errors are dropped; a broken event log must not stop the daemon.
func (e *EventLogger) Info(format string, args ...interface{}) {
	_ = e.w.Info(EventIDInfo, fmt.Sprintf(format, args...))
}

func (e *EventLogger) Warning(format string, args ...interface{}) {
	_ = e.w.Warning(EventIDWarning, fmt.Sprintf(format, args...))
}

func (e *EventLogger) Error(format string, args ...interface{}) {
	_ = e.w.Error(EventIDError, fmt.Sprintf(format, args...))
}

func (e *EventLogger) Close() error {
	if e.w == nil {
		return nil
	}
	return e.w.Close()
}

var _ Logger = (*EventLogger)(nil)
