package logger

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the zerolog output encoding.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ZeroLogger is the daemon's default backend.
type ZeroLogger struct {
	zl zerolog.Logger
}

// NewZeroLogger writes to w at the given level ("debug", "info", "warn",
// "error"). An unparsable level falls back to info.
func NewZeroLogger(w io.Writer, level string, format Format) *ZeroLogger {
	if format != FormatJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Str("app", "waqt").Logger()
	return &ZeroLogger{zl: zl}
}

// With returns a child logger that tags every line with component.
func (z *ZeroLogger) With(component string) *ZeroLogger {
	return &ZeroLogger{zl: z.zl.With().Str("component", component).Logger()}
}

func (z *ZeroLogger) Info(format string, args ...interface{}) {
	z.zl.Info().Msg(fmt.Sprintf(format, args...))
}

func (z *ZeroLogger) Warning(format string, args ...interface{}) {
	z.zl.Warn().Msg(fmt.Sprintf(format, args...))
}

func (z *ZeroLogger) Error(format string, args ...interface{}) {
	z.zl.Error().Msg(fmt.Sprintf(format, args...))
}

func (z *ZeroLogger) Close() error { return nil }

var _ Logger = (*ZeroLogger)(nil)
