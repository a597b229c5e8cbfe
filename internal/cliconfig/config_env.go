package cliconfig

import "os"

// EnvPrefix prefixes every environment variable recship reads.
const EnvPrefix = "RECSHIP_"

func env(name string) string { return os.Getenv(EnvPrefix + name) }

// ApplyEnvConfig applies configuration from environment variables (RECSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("url", env("START_URL"), &cfg.StartURL)
	s.setString("channel-url", env("CHANNEL_URL"), &cfg.ChannelURL)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("store", env("STORE"), &cfg.Store)
	s.setString("control-addr", env("CONTROL_ADDR"), &cfg.ControlAddr)
	s.setString("chrome-path", env("CHROME_PATH"), &cfg.ChromePath)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("retry-base-delay", env("RETRY_BASE_DELAY"), &cfg.RetryBaseDelay); err != nil {
		return err
	}
	if err := s.setDuration("handshake-timeout", env("HANDSHAKE_TIMEOUT"), &cfg.HandshakeTimeout); err != nil {
		return err
	}
	if err := s.setDuration("scroll-debounce", env("SCROLL_DEBOUNCE"), &cfg.ScrollDebounce); err != nil {
		return err
	}
	if err := s.setDuration("resume-delay", env("RESUME_DELAY"), &cfg.ResumeDelay); err != nil {
		return err
	}

	if err := s.setIntFromString("max-retries", env("MAX_RETRIES"), &cfg.MaxRetries); err != nil {
		return err
	}
	if err := s.setIntFromString("text-snippet-max", env("TEXT_SNIPPET_MAX"), &cfg.TextSnippetMax); err != nil {
		return err
	}

	s.setBoolFromString("headless", env("HEADLESS"), &cfg.Headless)

	return nil
}
