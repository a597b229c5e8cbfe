package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	StartURL         string `toml:"start_url"`
	ChannelURL       string `toml:"channel_url"`
	MaxRetries       *int   `toml:"max_retries"`
	RetryBaseDelay   string `toml:"retry_base_delay"`
	HandshakeTimeout string `toml:"handshake_timeout"`
	ScrollDebounce   string `toml:"scroll_debounce"`
	ResumeDelay      string `toml:"resume_delay"`
	TextSnippetMax   *int   `toml:"text_snippet_max"`
	StateDir         string `toml:"state_dir"`
	Store            string `toml:"store"`
	ControlAddr      string `toml:"control_addr"`
	Headless         *bool  `toml:"headless"`
	ChromePath       string `toml:"chrome_path"`
	LogLevel         string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.recship/config.toml, or "" when there is no
// home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".recship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("url", fc.StartURL, &cfg.StartURL)
	s.setString("channel-url", fc.ChannelURL, &cfg.ChannelURL)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("store", fc.Store, &cfg.Store)
	s.setString("control-addr", fc.ControlAddr, &cfg.ControlAddr)
	s.setString("chrome-path", fc.ChromePath, &cfg.ChromePath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("retry-base-delay", fc.RetryBaseDelay, &cfg.RetryBaseDelay); err != nil {
		return err
	}
	if err := s.setDuration("handshake-timeout", fc.HandshakeTimeout, &cfg.HandshakeTimeout); err != nil {
		return err
	}
	if err := s.setDuration("scroll-debounce", fc.ScrollDebounce, &cfg.ScrollDebounce); err != nil {
		return err
	}
	if err := s.setDuration("resume-delay", fc.ResumeDelay, &cfg.ResumeDelay); err != nil {
		return err
	}

	s.setInt("max-retries", fc.MaxRetries, &cfg.MaxRetries)
	s.setInt("text-snippet-max", fc.TextSnippetMax, &cfg.TextSnippetMax)

	s.setBool("headless", fc.Headless, &cfg.Headless)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
