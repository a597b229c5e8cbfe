package recship

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/recship/internal/adapters/chrome"
	"github.com/bft-labs/recship/internal/adapters/fs"
	"github.com/bft-labs/recship/internal/adapters/sqlite"
	"github.com/bft-labs/recship/internal/app"
	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/pkg/control"
	"github.com/bft-labs/recship/pkg/log"
	"github.com/bft-labs/recship/pkg/state"
)

// Session is a finalized recording.
type Session = domain.Session

// Recship records user interactions in a browser and ships them to a
// test-generation consumer. Use New, then Start.
type Recship struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	logger    Logger
	events    emitter
	plugins   []Plugin
	active    []Plugin

	pages   *pages
	handler *control.Handler

	mu       sync.Mutex
	cancel   context.CancelFunc
	host     Browser
	fallback *state.Fallback
	server   *control.Server

	doneMu   sync.Mutex
	done     chan struct{}
	doneOnce *sync.Once
}

// New creates a Recship instance in StateStopped.
func New(cfg Config, opts ...Option) (*Recship, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}
	if o.repository == nil && cfg.StateDir == "" {
		return nil, fmt.Errorf("%w: state dir is required", domain.ErrInvalidConfig)
	}

	ev := emitter{handler: o.eventHandler}
	r := &Recship{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(o.logger, ev),
		logger:    o.logger,
		events:    ev,
		plugins:   o.plugins,
		done:      make(chan struct{}),
		doneOnce:  &sync.Once{},
	}
	r.pages = &pages{
		cfg:    cfg,
		logger: o.logger,
		dialer: o.dialer,
		clock:  o.clock,
		events: ev,
	}
	r.handler = control.NewHandler(r.pages.Current, o.logger)
	return r, nil
}

// OpenRepository opens the store named by store inside dir.
func OpenRepository(ctx context.Context, store, dir string) (state.Repository, error) {
	switch store {
	case StoreSQLite:
		return sqlite.Open(ctx, dir)
	case StoreFile, "":
		return fs.NewKVFile(dir)
	default:
		return nil, fmt.Errorf("%w: unknown store %q", domain.ErrInvalidConfig, store)
	}
}

// Start opens the store, initializes plugins, starts the control relay
// and launches the browser. Every page the browser loads gets its own
// recorder and consumer channel.
func (r *Recship) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := r.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.lifecycle.SetCancel(cancel)
	done, once := r.resetDone()

	if err := r.startLocked(runCtx); err != nil {
		r.logger.Error("start failed", log.Err(err))
		r.teardownLocked(context.Background())
		cancel()
		_ = r.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}

	if err := r.lifecycle.TransitionTo(app.StateRunning, "browser open"); err != nil {
		return err
	}

	if d, ok := r.host.(interface{ Done() <-chan struct{} }); ok {
		browserDone := d.Done()
		r.lifecycle.AddWorker()
		go func() {
			defer r.lifecycle.WorkerDone()
			select {
			case <-runCtx.Done():
			case <-browserDone:
				r.logger.Info("browser exited")
				once.Do(func() { close(done) })
			}
		}()
	}
	return nil
}

func (r *Recship) startLocked(ctx context.Context) error {
	repo := r.opts.repository
	if repo == nil {
		var err error
		if repo, err = OpenRepository(ctx, r.config.Store, r.config.StateDir); err != nil {
			return fmt.Errorf("open store: %w", err)
		}
	}
	r.fallback = state.NewFallback(repo, r.logger)
	r.pages.setStore(r.fallback)

	pluginCfg := PluginConfig{
		StateDir:   r.config.StateDir,
		ConfigPath: r.config.ConfigPath,
		Logger:     r.logger,
	}
	for _, p := range r.plugins {
		if err := p.Initialize(ctx, pluginCfg); err != nil {
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		r.active = append(r.active, p)
		r.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	if r.config.ControlAddr != "" {
		srv := control.NewServer(control.ServerConfig{Addr: r.config.ControlAddr}, r.handler, r.logger)
		if err := srv.Start(); err != nil {
			return err
		}
		r.server = srv
	}

	host := r.opts.host
	if host == nil {
		host = chrome.New(chrome.Config{
			Headless: r.config.Headless,
			ExecPath: r.config.ChromePath,
		}, r.logger)
	}
	r.host = host
	if err := host.Open(ctx, r.config.StartURL, r.pages); err != nil {
		return err
	}
	return nil
}

// teardownLocked releases whatever startLocked acquired, in reverse.
func (r *Recship) teardownLocked(ctx context.Context) {
	if r.host != nil {
		if err := r.host.Close(); err != nil {
			r.logger.Warn("close browser", log.Err(err))
		}
		r.host = nil
	}
	r.pages.wait()
	if r.server != nil {
		if err := r.server.Shutdown(ctx); err != nil {
			r.logger.Warn("stop control server", log.Err(err))
		}
		r.server = nil
	}
	for i := len(r.active) - 1; i >= 0; i-- {
		p := r.active[i]
		if err := p.Shutdown(ctx); err != nil {
			r.logger.Error("plugin shutdown failed", log.String("plugin", p.Name()), log.Err(err))
		} else {
			r.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
	r.active = nil
	if r.fallback != nil {
		r.pages.setStore(nil)
		if err := r.fallback.Close(); err != nil {
			r.logger.Warn("close store", log.Err(err))
		}
		r.fallback = nil
	}
}

// Stop unloads the current page, which finalizes and delivers a recording
// in progress, then closes the browser, plugins and the store.
func (r *Recship) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lifecycle.CanStop() {
		return domain.ErrNotRunning
	}
	if err := r.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer cancel()
	r.teardownLocked(ctx)
	if r.cancel != nil {
		r.cancel()
	}
	err := r.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	r.signalDone()

	if err != nil {
		_ = r.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
		return err
	}
	_ = r.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	return nil
}

// Status returns the current lifecycle state.
func (r *Recship) Status() State {
	return convertState(r.lifecycle.State())
}

// Done is closed when the browser exits on its own or Stop completes.
func (r *Recship) Done() <-chan struct{} {
	r.doneMu.Lock()
	defer r.doneMu.Unlock()
	return r.done
}

func (r *Recship) resetDone() (chan struct{}, *sync.Once) {
	r.doneMu.Lock()
	defer r.doneMu.Unlock()
	r.done = make(chan struct{})
	r.doneOnce = &sync.Once{}
	return r.done, r.doneOnce
}

func (r *Recship) signalDone() {
	r.doneMu.Lock()
	done, once := r.done, r.doneOnce
	r.doneMu.Unlock()
	once.Do(func() { close(done) })
}

// Handle runs a collaborator command against the current page.
func (r *Recship) Handle(cmd control.Command) control.Response {
	return r.handler.Handle(cmd)
}

// LastSession returns the last persisted session, or nil when there is
// none. It needs a running instance.
func (r *Recship) LastSession(ctx context.Context) (*Session, error) {
	fb := r.pages.store()
	if fb == nil {
		return nil, domain.ErrNotRunning
	}
	return fb.LastSession(ctx)
}
