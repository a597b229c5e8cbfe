package cliconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/recship/internal/app"
	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/pkg/channel"
)

// Store backends for the persisted recording flag and last session.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// DefaultControlAddr is where the control relay listens by default.
const DefaultControlAddr = "127.0.0.1:3005"

// Config holds CLI configuration for recship.
type Config struct {
	StartURL   string
	ChannelURL string

	MaxRetries       int
	RetryBaseDelay   time.Duration
	HandshakeTimeout time.Duration

	ScrollDebounce time.Duration
	ResumeDelay    time.Duration
	TextSnippetMax int

	StateDir    string
	Store       string
	ControlAddr string

	Headless   bool
	ChromePath string
	LogLevel   string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		StartURL:         "about:blank",
		ChannelURL:       channel.DefaultURL,
		MaxRetries:       channel.DefaultMaxRetries,
		RetryBaseDelay:   channel.DefaultBaseDelay,
		HandshakeTimeout: channel.DefaultHandshakeTimeout,
		ScrollDebounce:   app.DefaultScrollDebounce,
		ResumeDelay:      app.DefaultResumeDelay,
		TextSnippetMax:   app.DefaultTextSnippetMax,
		Store:            StoreFile,
		ControlAddr:      DefaultControlAddr,
		LogLevel:         "info",
		StateDir:         "", // ~/.recship during Validate
	}
}

// Validate checks the configuration and fills derived defaults.
func (c *Config) Validate() error {
	if c.StartURL == "" {
		c.StartURL = "about:blank"
	}
	if _, err := url.Parse(c.StartURL); err != nil {
		return invalid("start url: %v", err)
	}

	u, err := url.Parse(c.ChannelURL)
	if err != nil {
		return invalid("channel url: %v", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return invalid("channel url must use ws or wss, got %q", c.ChannelURL)
	}

	if c.MaxRetries < 0 {
		return invalid("max retries must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"retry base delay":  c.RetryBaseDelay,
		"handshake timeout": c.HandshakeTimeout,
		"scroll debounce":   c.ScrollDebounce,
	} {
		if d <= 0 {
			return invalid("%s must be positive", name)
		}
	}
	if c.ResumeDelay < 0 {
		return invalid("resume delay must not be negative")
	}
	if c.TextSnippetMax <= 0 {
		return invalid("text snippet max must be positive")
	}

	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case "":
		c.Store = StoreFile
	case StoreFile, StoreSQLite:
	default:
		return invalid("unknown store %q (want %s or %s)", c.Store, StoreFile, StoreSQLite)
	}

	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
	}
	if c.StateDir == "" {
		return invalid("state dir is required")
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return invalid("log level: %v", err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// DefaultStateDir returns ~/.recship, or "" when there is no home directory.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".recship")
	}
	return ""
}

// configSetter applies values while respecting flag precedence: a value is
// only applied when the flag of the same name was not set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt applies a non-nil value, zero included.
func (s *configSetter) setInt(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = i
	return nil
}

// setBoolFromString treats "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
