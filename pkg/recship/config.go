package recship

import (
	"fmt"
	"net/url"
	"time"

	"github.com/bft-labs/recship/internal/app"
	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/pkg/channel"
)

// Store backends for the recording flag and the last session.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config configures a Recship instance.
type Config struct {
	// StartURL is the first page the browser opens.
	StartURL string

	// Channel configures the link to the test-generation consumer.
	Channel channel.Config

	// ScrollDebounce is how long scrolling must pause before it is recorded.
	ScrollDebounce time.Duration
	// ResumeDelay is the wait before a page resumes a recording in progress.
	ResumeDelay time.Duration
	// TextSnippetMax caps the click text kept per action, in characters.
	TextSnippetMax int

	// StateDir holds the store. Required unless WithRepository is used.
	StateDir string
	// Store is StoreFile or StoreSQLite.
	Store string

	// ControlAddr is the control relay listen address. Empty disables it.
	ControlAddr string

	Headless   bool
	ChromePath string

	// ConfigPath is the config file plugins may watch.
	ConfigPath string
}

// DefaultConfig returns a Config with default values. StateDir is left
// empty.
func DefaultConfig() Config {
	eng := app.DefaultEngineConfig()
	return Config{
		StartURL:       "about:blank",
		Channel:        channel.DefaultConfig(),
		ScrollDebounce: eng.ScrollDebounce,
		ResumeDelay:    eng.ResumeDelay,
		TextSnippetMax: eng.TextSnippetMax,
		Store:          StoreFile,
	}
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.StartURL == "" {
		c.StartURL = d.StartURL
	}
	if c.Channel.URL == "" {
		c.Channel.URL = d.Channel.URL
	}
	if c.Channel.BaseDelay <= 0 {
		c.Channel.BaseDelay = d.Channel.BaseDelay
	}
	if c.Channel.HandshakeTimeout <= 0 {
		c.Channel.HandshakeTimeout = d.Channel.HandshakeTimeout
	}
	if c.Channel.WriteTimeout <= 0 {
		c.Channel.WriteTimeout = d.Channel.WriteTimeout
	}
	if c.ScrollDebounce <= 0 {
		c.ScrollDebounce = d.ScrollDebounce
	}
	if c.ResumeDelay < 0 {
		c.ResumeDelay = d.ResumeDelay
	}
	if c.TextSnippetMax <= 0 {
		c.TextSnippetMax = d.TextSnippetMax
	}
	if c.Store == "" {
		c.Store = d.Store
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := url.Parse(c.StartURL); err != nil {
		return fmt.Errorf("%w: start url: %v", domain.ErrInvalidConfig, err)
	}
	if err := c.Channel.Validate(); err != nil {
		return err
	}
	switch c.Store {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("%w: unknown store %q", domain.ErrInvalidConfig, c.Store)
	}
	return nil
}

func (c Config) engineConfig() app.EngineConfig {
	return app.EngineConfig{
		ScrollDebounce: c.ScrollDebounce,
		ResumeDelay:    c.ResumeDelay,
		TextSnippetMax: c.TextSnippetMax,
	}
}
