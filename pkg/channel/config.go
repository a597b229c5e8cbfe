package channel

import (
	"fmt"
	"net/url"
	"time"

	"github.com/bft-labs/recship/internal/domain"
)

// Default configuration values.
const (
	DefaultURL              = "ws://localhost:3004"
	DefaultMaxRetries       = 3
	DefaultBaseDelay        = 2 * time.Second
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
)

// Config controls the connection and retry policy.
type Config struct {
	// URL is the consumer's WebSocket endpoint.
	URL string

	// MaxRetries caps reconnect attempts. Zero disables reconnecting.
	MaxRetries int

	// BaseDelay is multiplied by the attempt number to get the reconnect delay.
	BaseDelay time.Duration

	// HandshakeTimeout bounds a single dial.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds a single message write.
	WriteTimeout time.Duration
}

// DefaultConfig returns the default channel configuration.
func DefaultConfig() Config {
	return Config{
		URL:              DefaultURL,
		MaxRetries:       DefaultMaxRetries,
		BaseDelay:        DefaultBaseDelay,
		HandshakeTimeout: DefaultHandshakeTimeout,
		WriteTimeout:     DefaultWriteTimeout,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%w: channel url: %v", domain.ErrInvalidConfig, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: channel url scheme must be ws or wss, got %q", domain.ErrInvalidConfig, u.Scheme)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", domain.ErrInvalidConfig)
	}
	if c.BaseDelay <= 0 {
		return fmt.Errorf("%w: retry base delay must be positive", domain.ErrInvalidConfig)
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.URL == "" {
		c.URL = d.URL
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	return c
}
