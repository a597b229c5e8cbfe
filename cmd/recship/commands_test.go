package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/recship/internal/cliconfig"
)

const checkoutHTML = `<html><body>
<div class="form">
  <button class="btn">Back</button>
  <button class="btn" id="pay">Pay</button>
</div>
<p id="plain">no classes</p>
</body></html>`

func runSelector(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newSelectorCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestSelectorCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(checkoutHTML), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := runSelector(t, "--file", path, "--id", "pay")
	if err != nil {
		t.Fatalf("selector failed: %v", err)
	}
	if want := ".form .btn:nth-child(2)"; got != want {
		t.Errorf("selector = %q, want %q", got, want)
	}

	if _, err := runSelector(t, "--file", path, "--id", "plain"); err == nil {
		t.Error("expected an error for an element without classes")
	}
	if _, err := runSelector(t, "--file", path, "--id", "missing"); err == nil {
		t.Error("expected an error for a missing id")
	}
}

func TestLibraryConfig(t *testing.T) {
	cfg := cliconfig.DefaultConfig()
	cfg.StartURL = "https://app.test"
	cfg.ChannelURL = "ws://gen.test:9000"
	cfg.MaxRetries = 5
	cfg.RetryBaseDelay = time.Second
	cfg.StateDir = "/tmp/recship"
	cfg.Headless = true

	got := libraryConfig(cfg, "/etc/recship.toml")
	if got.StartURL != cfg.StartURL || got.Channel.URL != cfg.ChannelURL {
		t.Errorf("urls not carried over: %+v", got)
	}
	if got.Channel.MaxRetries != 5 || got.Channel.BaseDelay != time.Second {
		t.Errorf("retry policy not carried over: %+v", got.Channel)
	}
	if got.StateDir != "/tmp/recship" || !got.Headless || got.ConfigPath != "/etc/recship.toml" {
		t.Errorf("unexpected config: %+v", got)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
