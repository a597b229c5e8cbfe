package ports

import (
	"time"

	"github.com/bft-labs/recship/pkg/log"
)

// Logger is the structured logger every component takes.
type Logger = log.Logger

// Field is a single key/value pair attached to a log line.
type Field = log.Field

// String creates a string field.
func String(key, value string) Field {
	return log.String(key, value)
}

// Int creates an int field.
func Int(key string, value int) Field {
	return log.Int(key, value)
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return log.Bool(key, value)
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return log.Duration(key, value)
}

// Err creates an error field with key "error".
func Err(err error) Field {
	return log.Err(err)
}

// Any creates a field with any value.
func Any(key string, value any) Field {
	return log.Any(key, value)
}
