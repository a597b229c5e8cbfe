// Package log provides the logging abstraction used by recship components.
//
// Components never talk to a concrete logging library. They accept a Logger
// and attach structured fields with the helpers in this package:
//
//	logger.Warn("event dropped",
//	    log.String("kind", "click"),
//	    log.String("reason", "empty selector"),
//	)
//
// A zerolog-backed implementation is provided for the CLI and for embedders
// that already use zerolog:
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//
// Tests use the no-op logger:
//
//	logger := log.NewNoopLogger()
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
