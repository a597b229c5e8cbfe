package log

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ZerologAdapter implements Logger using zerolog. Its level can be changed
// while in use.
type ZerologAdapter struct {
	logger atomic.Pointer[zerolog.Logger]
}

var _ LevelSetter = (*ZerologAdapter)(nil)

// NewZerologAdapter creates a zerolog adapter writing to stderr through the
// console writer at the given level ("debug", "info", ...).
func NewZerologAdapter(level string) *ZerologAdapter {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return NewZerologAdapterWithLogger(
		zerolog.New(output).Level(ParseLevel(level)).With().Timestamp().Logger(),
	)
}

// NewZerologAdapterWithLogger wraps an existing zerolog.Logger.
func NewZerologAdapterWithLogger(logger zerolog.Logger) *ZerologAdapter {
	z := &ZerologAdapter{}
	z.logger.Store(&logger)
	return z
}

// ParseLevel maps a level name to a zerolog level. Unknown names fall back
// to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (z *ZerologAdapter) Debug(msg string, fields ...Field) {
	emit(z.logger.Load().Debug(), msg, fields)
}

func (z *ZerologAdapter) Info(msg string, fields ...Field) {
	emit(z.logger.Load().Info(), msg, fields)
}

func (z *ZerologAdapter) Warn(msg string, fields ...Field) {
	emit(z.logger.Load().Warn(), msg, fields)
}

func (z *ZerologAdapter) Error(msg string, fields ...Field) {
	emit(z.logger.Load().Error(), msg, fields)
}

// SetLevel switches the minimum level. Unknown names mean info.
func (z *ZerologAdapter) SetLevel(level string) {
	next := z.logger.Load().Level(ParseLevel(level))
	z.logger.Store(&next)
}

// Level returns the current minimum level.
func (z *ZerologAdapter) Level() string {
	return z.logger.Load().GetLevel().String()
}

// Logger returns the underlying zerolog.Logger.
func (z *ZerologAdapter) Logger() zerolog.Logger {
	return *z.logger.Load()
}

func emit(event *zerolog.Event, msg string, fields []Field) {
	// Disabled levels return a nil event.
	if event == nil {
		return
	}
	for _, f := range fields {
		event = addField(event, f)
	}
	event.Msg(msg)
}

func addField(event *zerolog.Event, f Field) *zerolog.Event {
	switch v := f.Value.(type) {
	case string:
		return event.Str(f.Key, v)
	case int:
		return event.Int(f.Key, v)
	case int64:
		return event.Int64(f.Key, v)
	case uint64:
		return event.Uint64(f.Key, v)
	case float64:
		return event.Float64(f.Key, v)
	case bool:
		return event.Bool(f.Key, v)
	case time.Duration:
		return event.Dur(f.Key, v)
	case time.Time:
		return event.Time(f.Key, v)
	case error:
		return event.Err(v)
	default:
		return event.Interface(f.Key, v)
	}
}
