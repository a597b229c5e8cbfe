package configwatcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/bft-labs/recship/internal/cliconfig"
	"github.com/bft-labs/recship/pkg/log"
	"github.com/bft-labs/recship/pkg/recship"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPlugin_Name(t *testing.T) {
	if got := New(DefaultConfig()).Name(); got != "configwatcher" {
		t.Errorf("Name() = %q, want configwatcher", got)
	}
}

func TestPlugin_DisabledWithoutConfigPath(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(DefaultConfig())
	ctx := context.Background()
	if err := p.Initialize(ctx, recship.PluginConfig{Logger: log.NewNoopLogger()}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestPlugin_MissingDirectory(t *testing.T) {
	p := New(DefaultConfig())
	err := p.Initialize(context.Background(), recship.PluginConfig{
		ConfigPath: filepath.Join(t.TempDir(), "nope", "config.toml"),
		Logger:     log.NewNoopLogger(),
	})
	if err == nil {
		t.Fatal("Initialize succeeded for a missing directory")
	}
}

func TestPlugin_ReloadsLogLevel(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "log_level = \"info\"\n")

	logger := log.NewZerologAdapterWithLogger(zerolog.New(io.Discard).Level(zerolog.InfoLevel))

	var mu sync.Mutex
	var reloaded []cliconfig.FileConfig
	p := New(Config{
		DebounceDelay: 10 * time.Millisecond,
		OnReload: func(fc cliconfig.FileConfig) {
			mu.Lock()
			defer mu.Unlock()
			reloaded = append(reloaded, fc)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Initialize(ctx, recship.PluginConfig{ConfigPath: path, Logger: logger}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	writeConfig(t, path, "log_level = \"debug\"\nchannel_url = \"ws://localhost:9000\"\n")
	eventually(t, func() bool { return logger.Level() == "debug" })

	mu.Lock()
	last := reloaded[len(reloaded)-1]
	mu.Unlock()
	if last.ChannelURL != "ws://localhost:9000" {
		t.Errorf("ChannelURL = %q, want ws://localhost:9000", last.ChannelURL)
	}

	if err := p.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "log_level = \"info\"\n")

	logger := log.NewZerologAdapterWithLogger(zerolog.New(io.Discard).Level(zerolog.InfoLevel))
	p := New(Config{DebounceDelay: 10 * time.Millisecond})
	ctx := context.Background()
	if err := p.Initialize(ctx, recship.PluginConfig{ConfigPath: path, Logger: logger}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer p.Shutdown(ctx)

	writeConfig(t, filepath.Join(dir, "other.toml"), "log_level = \"debug\"\n")
	time.Sleep(200 * time.Millisecond)
	if got := logger.Level(); got != "info" {
		t.Errorf("Level() = %q after unrelated write, want info", got)
	}
}

func TestPlugin_RecoversFromBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "log_level = \"info\"\n")

	logger := log.NewZerologAdapterWithLogger(zerolog.New(io.Discard).Level(zerolog.InfoLevel))
	p := New(Config{
		DebounceDelay: 10 * time.Millisecond,
		RetryInterval: 20 * time.Millisecond,
		MaxRetries:    2,
	})
	ctx := context.Background()
	if err := p.Initialize(ctx, recship.PluginConfig{ConfigPath: path, Logger: logger}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer p.Shutdown(ctx)

	writeConfig(t, path, "log_level = \n")
	time.Sleep(150 * time.Millisecond)
	if got := logger.Level(); got != "info" {
		t.Fatalf("Level() = %q after broken write, want info", got)
	}

	// Editors save by renaming a temp file over the original.
	if err := os.WriteFile(path+".tmp", []byte("log_level = \"warn\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(path+".tmp", path); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return logger.Level() == "warn" })
}
