package recship

import (
	"context"
	"sync"

	"github.com/bft-labs/recship/internal/app"
	"github.com/bft-labs/recship/internal/ports"
	"github.com/bft-labs/recship/pkg/channel"
	"github.com/bft-labs/recship/pkg/clock"
	"github.com/bft-labs/recship/pkg/control"
	"github.com/bft-labs/recship/pkg/log"
	"github.com/bft-labs/recship/pkg/page"
	"github.com/bft-labs/recship/pkg/state"
)

// ineligibleNotice is shown once on pages that cannot be recorded.
const ineligibleNotice = "Recording is not available on this page"

// pageRuntime is everything attached to one loaded document. Ineligible
// pages get a runtime without engine or channel.
type pageRuntime struct {
	page    ports.Page
	url     string
	engine  *app.Engine
	channel *channel.Channel
}

var _ control.Target = (*pageRuntime)(nil)

func (r *pageRuntime) Start() error {
	if r.engine == nil {
		return page.Check(r.url)
	}
	return r.engine.Start()
}

func (r *pageRuntime) Stop() error {
	if r.engine == nil {
		return nil
	}
	return r.engine.Stop()
}

func (r *pageRuntime) Status() (string, bool) {
	if r.engine == nil {
		return r.url, false
	}
	return r.engine.Status()
}

// pages implements ports.PageEvents. It builds a runtime for every loaded
// document and tears it down when the document goes away.
type pages struct {
	cfg    Config
	logger log.Logger
	dialer channel.Dialer
	clock  clock.Clock
	events emitter

	mu       sync.Mutex
	fallback *state.Fallback
	current  *pageRuntime
	wg       sync.WaitGroup
}

var _ ports.PageEvents = (*pages)(nil)

func (p *pages) PageLoaded(pg ports.Page) {
	url := pg.URL()
	rt := &pageRuntime{page: pg, url: url}
	fallback := p.store()

	if err := page.Check(url); err != nil {
		p.logger.Info("page not eligible for recording", log.String("url", url), log.Err(err))
		pg.Notify(context.Background(), ineligibleNotice)
		p.setCurrent(rt)
		p.events.pageLoaded(url, false)
		return
	}

	var eng *app.Engine
	opts := []channel.Option{
		channel.WithClock(p.clock),
		channel.WithLogger(p.logger),
		channel.WithFallback(fallback),
		channel.WithGiveUp(func() { eng.Resume() }),
	}
	if p.dialer != nil {
		opts = append(opts, channel.WithDialer(p.dialer))
	}
	ch := channel.New(p.cfg.Channel, opts...)

	eng = app.NewEngine(p.cfg.engineConfig(), pg, ch, fallback,
		app.WithEngineClock(p.clock),
		app.WithEngineLogger(p.logger),
		app.WithStateObserver(observer{url: pg.URL, events: p.events}),
	)
	ch.SetController(eng)
	rt.engine, rt.channel = eng, ch
	p.setCurrent(rt)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ch.Connect()
	}()
	eng.Init()

	p.logger.Info("page attached", log.String("url", url))
	p.events.pageLoaded(url, true)
}

func (p *pages) PageUnloaded(pg ports.Page) {
	p.mu.Lock()
	rt := p.current
	if rt == nil || rt.page != pg {
		p.mu.Unlock()
		return
	}
	p.current = nil
	p.mu.Unlock()

	if rt.engine != nil {
		rt.engine.Unload()
	}
	if rt.channel != nil {
		_ = rt.channel.Close()
	}
	p.logger.Debug("page detached", log.String("url", rt.url))
}

func (p *pages) setStore(fb *state.Fallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fallback = fb
}

func (p *pages) store() *state.Fallback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fallback
}

func (p *pages) setCurrent(rt *pageRuntime) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = rt
}

// Current returns the runtime of the loaded page, or nil.
func (p *pages) Current() control.Target {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	return p.current
}

// wait blocks until in-flight channel dials return.
func (p *pages) wait() {
	p.wg.Wait()
}

type observer struct {
	url    func() string
	events emitter
}

func (o observer) RecordingChanged(recording bool, sessionID string) {
	o.events.recordingChanged(o.url(), sessionID, recording)
}
