package domain

import "errors"

// Errors returned by recship components. Check them with errors.Is.
var (
	// ErrPageIneligible is returned when the current document may not be recorded.
	ErrPageIneligible = errors.New("recship: page not eligible for recording")

	// ErrNotConnected is returned when a message cannot be written because the
	// sync channel is not connected.
	ErrNotConnected = errors.New("recship: channel not connected")

	// ErrChannelClosed is returned after the sync channel was closed for good.
	ErrChannelClosed = errors.New("recship: channel closed")

	// ErrRetriesExhausted is reported once the channel stops reconnecting.
	ErrRetriesExhausted = errors.New("recship: reconnect retries exhausted")

	// ErrPageUnloaded is returned when an engine is used after its page unloaded.
	ErrPageUnloaded = errors.New("recship: page unloaded")

	// ErrNoSession is returned when an operation needs an open session.
	ErrNoSession = errors.New("recship: no active session")

	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("recship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("recship: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("recship: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("recship: invalid configuration")
)
