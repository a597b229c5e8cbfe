// Package chrome hosts recorded pages in Chrome over the DevTools protocol.
//
// A small script is injected into every new document. It forwards DOM
// events to Go through a runtime binding and exposes helpers for listener
// control, metadata and notices. Each top-level document becomes a
// [Document], reported to a ports.PageEvents as it loads and unloads.
package chrome

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/internal/metrics"
	"github.com/bft-labs/recship/internal/ports"
	"github.com/bft-labs/recship/pkg/log"
)

const (
	bindingName = "__recshipEmit"
	queueSize   = 1024

	// DefaultEvalTimeout bounds a single in-page evaluation.
	DefaultEvalTimeout = 5 * time.Second
)

//go:embed shim.js
var shimSource string

// shimScript is the injected script with the binding name filled in.
func shimScript() string {
	return strings.ReplaceAll(shimSource, "__BINDING__", strconv.Quote(bindingName))
}

// Config controls the browser.
type Config struct {
	Headless    bool
	ExecPath    string
	EvalTimeout time.Duration
}

// Host drives one Chrome tab. It implements ports.Browser.
type Host struct {
	cfg      Config
	logger   ports.Logger
	evaluate evalFunc

	mu          sync.Mutex
	events      ports.PageEvents
	current     *Document
	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	opened      bool
	closed      bool

	queue  chan string
	done   chan struct{}
	exited chan struct{}
	wg     sync.WaitGroup
}

var _ ports.Browser = (*Host)(nil)

// New creates a Host. Nothing is launched until Open.
func New(cfg Config, logger ports.Logger) *Host {
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = DefaultEvalTimeout
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	h := &Host{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan string, queueSize),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	h.evaluate = h.chromeEval
	return h
}

// Open launches Chrome, installs the binding and shim, and navigates to
// startURL. Page events are delivered to events from a single goroutine.
func (h *Host) Open(ctx context.Context, startURL string, events ports.PageEvents) error {
	h.mu.Lock()
	if h.opened || h.closed {
		h.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	h.opened = true
	h.events = events
	h.mu.Unlock()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", h.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if h.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(h.cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	h.mu.Lock()
	h.tabCtx = tabCtx
	h.cancelTab = cancelTab
	h.cancelAlloc = cancelAlloc
	h.mu.Unlock()

	chromedp.ListenTarget(tabCtx, h.onTargetEvent)

	h.wg.Add(1)
	go h.loop(tabCtx)

	err := chromedp.Run(tabCtx,
		runtime.AddBinding(bindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(shimScript()).Do(ctx)
			return err
		}),
		chromedp.Navigate(startURL),
	)
	if err != nil {
		_ = h.Close()
		return fmt.Errorf("open %s: %w", startURL, err)
	}
	h.logger.Info("browser opened", log.String("url", startURL), log.Bool("headless", h.cfg.Headless))
	return nil
}

// Current returns the loaded page, or nil.
func (h *Host) Current() ports.Page {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil
	}
	return h.current
}

// Done is closed once the host stops handling page events, either because
// Close was called or because the browser went away.
func (h *Host) Done() <-chan struct{} {
	return h.exited
}

// Close unloads the current page and shuts the browser down.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	close(h.done)
	h.wg.Wait()
	h.unloadCurrent()

	h.mu.Lock()
	cancelTab, cancelAlloc := h.cancelTab, h.cancelAlloc
	h.mu.Unlock()
	if cancelTab != nil {
		cancelTab()
	}
	if cancelAlloc != nil {
		cancelAlloc()
	}
	select {
	case <-h.exited:
	default:
		close(h.exited)
	}
	return nil
}

// onTargetEvent runs on chromedp's event goroutine and must not block.
func (h *Host) onTargetEvent(ev any) {
	e, ok := ev.(*runtime.EventBindingCalled)
	if !ok || e.Name != bindingName {
		return
	}
	select {
	case h.queue <- e.Payload:
	default:
		metrics.ObserveDrop("shim", "queue_full")
		h.logger.Warn("drop page event, queue full")
	}
}

func (h *Host) loop(tabCtx context.Context) {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		case <-tabCtx.Done():
			h.logger.Info("browser closed")
			h.unloadCurrent()
			close(h.exited)
			return
		case payload := <-h.queue:
			h.handle(payload)
		}
	}
}

func (h *Host) handle(payload string) {
	w, err := decodeWire(payload)
	if err != nil {
		h.logger.Warn("discard page event", log.Err(err))
		return
	}

	h.mu.Lock()
	cur := h.current
	events := h.events
	h.mu.Unlock()

	switch w.Type {
	case msgLoad:
		if cur != nil && cur.ID() == w.Doc {
			return
		}
		h.unloadCurrent()
		doc := newDocument(w.Doc, w.URL, h.evaluate, h.logger, h.cfg.EvalTimeout)
		h.mu.Lock()
		h.current = doc
		h.mu.Unlock()
		h.logger.Info("page loaded", log.String("url", w.URL))
		if events != nil {
			events.PageLoaded(doc)
		}

	case msgUnload:
		if cur != nil && cur.ID() == w.Doc {
			h.unloadCurrent()
		}

	default:
		if cur == nil || cur.ID() != w.Doc {
			metrics.ObserveDrop(w.Type, "stale_document")
			return
		}
		ev, err := w.event()
		if err != nil {
			h.logger.Warn("discard page event", log.String("type", w.Type), log.Err(err))
			return
		}
		cur.dispatch(ev)
	}
}

func (h *Host) unloadCurrent() {
	h.mu.Lock()
	doc := h.current
	h.current = nil
	events := h.events
	h.mu.Unlock()
	if doc == nil {
		return
	}
	h.logger.Info("page unloaded", log.String("url", doc.URL()))
	if events != nil {
		events.PageUnloaded(doc)
	}
	doc.unload()
}

// chromeEval evaluates expr in the tab. The caller's deadline is kept but
// the tab context is what chromedp needs.
func (h *Host) chromeEval(ctx context.Context, expr string, res any) error {
	h.mu.Lock()
	tab := h.tabCtx
	h.mu.Unlock()
	if tab == nil {
		return domain.ErrNotRunning
	}

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if dl, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(tab, dl)
	} else {
		runCtx, cancel = context.WithTimeout(tab, h.cfg.EvalTimeout)
	}
	defer cancel()

	return chromedp.Run(runCtx, chromedp.Evaluate(expr, res))
}
