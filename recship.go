// Package recship records browser interactions and ships them to a test
// generator.
//
// Example usage:
//
//	cfg := recship.DefaultConfig()
//	cfg.StartURL = "https://app.example.com"
//	cfg.StateDir = "/tmp/recship"
//	if err := recship.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Embedders that need events, plugins or custom collaborators use
// pkg/recship directly.
package recship

import (
	"context"
	"errors"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/pkg/recship"
)

// Config holds the configuration for a recorder.
type Config = recship.Config

// Session is a finalized recording.
type Session = recship.Session

// DefaultConfig returns a Config with default values. StateDir must still
// be set.
func DefaultConfig() Config {
	return recship.DefaultConfig()
}

// Run starts a recorder and blocks until ctx is cancelled or the browser
// exits, then stops it.
func Run(ctx context.Context, cfg Config, opts ...recship.Option) error {
	rec, err := recship.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := rec.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-rec.Done():
	}
	if err := rec.Stop(); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		return err
	}
	return nil
}
