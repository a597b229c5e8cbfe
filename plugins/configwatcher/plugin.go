// Package configwatcher reloads the recship config file while the recorder
// runs. Only settings that can change without restarting the browser are
// applied; today that is the log level.
package configwatcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/recship/internal/cliconfig"
	"github.com/bft-labs/recship/pkg/log"
	"github.com/bft-labs/recship/pkg/recship"
)

// Plugin watches PluginConfig.ConfigPath and applies changes.
type Plugin struct {
	mu sync.Mutex

	retryInterval time.Duration
	debounceDelay time.Duration
	maxRetries    int
	onReload      func(cliconfig.FileConfig)

	path     string
	logger   recship.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	reloadC  chan struct{}
	retries  int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// RetryInterval is the delay before re-reading a file that failed to
	// parse, usually because it was caught mid-write.
	// Default: 1 second
	RetryInterval time.Duration

	// DebounceDelay is how long the file must stay quiet before it is read.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// MaxRetries caps re-reads of a broken file per change.
	// Default: 3
	MaxRetries int

	// OnReload is called with every successfully parsed file.
	OnReload func(cliconfig.FileConfig)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RetryInterval: time.Second,
		DebounceDelay: 100 * time.Millisecond,
		MaxRetries:    3,
	}
}

// New creates a config watcher plugin.
func New(cfg Config) *Plugin {
	d := DefaultConfig()
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = d.RetryInterval
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = d.DebounceDelay
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = d.MaxRetries
	}
	return &Plugin{
		retryInterval: cfg.RetryInterval,
		debounceDelay: cfg.DebounceDelay,
		maxRetries:    cfg.MaxRetries,
		onReload:      cfg.OnReload,
		reloadC:       make(chan struct{}, 1),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the config file's directory. Editors replace
// files on save, so the directory is watched rather than the file.
func (p *Plugin) Initialize(ctx context.Context, cfg recship.PluginConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	p.mu.Lock()
	p.path = cfg.ConfigPath
	p.logger = logger
	p.mu.Unlock()

	if cfg.ConfigPath == "" {
		logger.Warn("config watcher disabled: no config file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(cfg.ConfigPath)); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	logger.Info("config watcher started", log.String("path", cfg.ConfigPath))
	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.debounce != nil {
		p.debounce.Stop()
		p.debounce = nil
	}
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.mu.Lock()
			p.retries = 0
			p.mu.Unlock()
			p.schedule(p.debounceDelay)

		case <-p.reloadC:
			p.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

// schedule queues a reload on the watch loop after delay, replacing any
// reload already pending.
func (p *Plugin) schedule(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(delay, func() {
		select {
		case p.reloadC <- struct{}{}:
		default:
		}
	})
}

func (p *Plugin) reload() {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		p.mu.Lock()
		p.retries++
		retry := p.retries <= p.maxRetries
		p.mu.Unlock()

		p.logger.Warn("config reload failed", log.String("path", p.path), log.Err(err))
		if retry {
			p.schedule(p.retryInterval)
		}
		return
	}

	if fc.LogLevel != "" {
		if ls, ok := p.logger.(log.LevelSetter); ok {
			ls.SetLevel(fc.LogLevel)
			p.logger.Info("log level changed", log.String("level", fc.LogLevel))
		}
	}
	if p.onReload != nil {
		p.onReload(fc)
	}
}
