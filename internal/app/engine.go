package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/internal/metrics"
	"github.com/bft-labs/recship/internal/ports"
	"github.com/bft-labs/recship/pkg/channel"
	"github.com/bft-labs/recship/pkg/clock"
	"github.com/bft-labs/recship/pkg/log"
	"github.com/bft-labs/recship/pkg/page"
	"github.com/bft-labs/recship/pkg/selector"
)

// Engine defaults.
const (
	DefaultResumeDelay    = time.Second
	DefaultTextSnippetMax = 50
)

// EngineConfig tunes the capture engine.
type EngineConfig struct {
	ScrollDebounce time.Duration
	ResumeDelay    time.Duration
	TextSnippetMax int
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ScrollDebounce: DefaultScrollDebounce,
		ResumeDelay:    DefaultResumeDelay,
		TextSnippetMax: DefaultTextSnippetMax,
	}
}

// Engine is the per-document capture state machine. It is Idle until Start
// and Recording until Stop. Every entry point, including timer callbacks,
// runs under one mutex, so the action log has a single writer.
//
// Engine implements channel.Controller.
type Engine struct {
	cfg      EngineConfig
	doc      ports.Document
	sender   Sender
	store    Store
	clock    clock.Clock
	logger   ports.Logger
	observer ports.StateObserver

	mu          sync.Mutex
	recording   bool
	unloaded    bool
	recorder    *Recorder
	scroll      *debouncer
	listeners   []func()
	shortcutOff func()
	resume      clock.Timer
}

var _ channel.Controller = (*Engine)(nil)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineClock sets the clock for the scroll and resume timers.
func WithEngineClock(clk clock.Clock) EngineOption {
	return func(e *Engine) { e.clock = clk }
}

// WithEngineLogger sets the logger.
func WithEngineLogger(l ports.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithStateObserver registers an observer for start and stop.
func WithStateObserver(o ports.StateObserver) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// NewEngine creates an idle engine for doc.
func NewEngine(cfg EngineConfig, doc ports.Document, sender Sender, store Store, opts ...EngineOption) *Engine {
	def := DefaultEngineConfig()
	if cfg.ScrollDebounce <= 0 {
		cfg.ScrollDebounce = def.ScrollDebounce
	}
	if cfg.ResumeDelay < 0 {
		cfg.ResumeDelay = def.ResumeDelay
	}
	if cfg.TextSnippetMax <= 0 {
		cfg.TextSnippetMax = def.TextSnippetMax
	}

	e := &Engine{
		cfg:    cfg,
		doc:    doc,
		sender: sender,
		store:  store,
		clock:  clock.Real(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.NewNoopLogger()
	}
	e.recorder = NewRecorder(sender, store, e.logger)
	e.scroll = newDebouncer(e.clock, cfg.ScrollDebounce, &e.mu)
	return e
}

// Init attaches the keyboard shortcut listener and schedules Resume. It is
// called once, after the page is known to be eligible.
func (e *Engine) Init() {
	e.mu.Lock()
	if e.shortcutOff == nil && !e.unloaded {
		e.shortcutOff = e.doc.Listen(ports.EventKeyDown, e.handle)
	}
	e.mu.Unlock()
	e.Resume()
}

// Resume starts recording after the resume delay if the persisted flag is
// set, so a reload continues a recording in progress.
func (e *Engine) Resume() {
	if !e.store.Recording(context.Background()) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unloaded || e.recording || e.resume != nil {
		return
	}
	e.logger.Info("resuming recording", ports.Duration("delay", e.cfg.ResumeDelay))
	e.resume = e.clock.AfterFunc(e.cfg.ResumeDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.resume = nil
		if e.unloaded || e.recording {
			return
		}
		if err := e.startLocked(); err != nil {
			e.logger.Warn("resume recording failed", ports.Err(err))
		}
	})
}

// Start moves Idle to Recording. It is a no-op while recording.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked()
}

func (e *Engine) startLocked() error {
	if e.recording {
		return nil
	}
	if e.unloaded {
		return domain.ErrPageUnloaded
	}
	url := e.doc.URL()
	if err := page.Check(url); err != nil {
		return err
	}

	ctx := context.Background()
	sess := e.recorder.Begin(url, e.clock.Now())
	e.listeners = append(e.listeners,
		e.doc.Listen(ports.EventClick, e.handle),
		e.doc.Listen(ports.EventInput, e.handle),
		e.doc.Listen(ports.EventScroll, e.handle),
	)
	e.recording = true

	_ = e.store.SetRecording(ctx, true)
	_ = e.sender.Send(ctx, channel.RecordingStarted(url, sess.ID))

	e.logger.Info("recording started", ports.String("session_id", sess.ID), ports.String("url", url))
	e.notify(true, sess.ID)
	return nil
}

// Stop moves Recording to Idle, finalizes the session and delivers it. It
// is a no-op while idle.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked(true)
	return nil
}

// stopLocked ends a recording. persistFlag is false on unload, so the next
// document resumes.
func (e *Engine) stopLocked(persistFlag bool) {
	if !e.recording {
		return
	}
	ctx := context.Background()

	e.detachLocked()
	e.scroll.Cancel()
	e.recording = false

	if persistFlag {
		_ = e.store.SetRecording(ctx, false)
	}

	meta, err := e.doc.Metadata(ctx)
	if err != nil {
		e.logger.Warn("read page metadata", ports.Err(err))
	}
	sess, err := e.recorder.Finalize(ctx, meta)
	if err != nil {
		e.logger.Error("finalize session", ports.Err(err))
		return
	}
	_ = e.sender.Send(ctx, channel.RecordingStopped(e.doc.URL(), sess.ID))

	e.logger.Info("recording stopped",
		ports.String("session_id", sess.ID),
		ports.Int("actions", len(sess.Actions)),
	)
	e.notify(false, sess.ID)
}

// Toggle starts an idle engine and stops a recording one.
func (e *Engine) Toggle() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.toggleLocked()
}

func (e *Engine) toggleLocked() error {
	if e.recording {
		e.stopLocked(true)
		return nil
	}
	return e.startLocked()
}

// Unload ends the engine for this document. A recording in progress is
// finalized but the persisted flag stays set. The engine cannot be
// restarted afterwards.
func (e *Engine) Unload() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unloaded {
		return
	}
	e.stopLocked(false)
	if e.resume != nil {
		e.resume.Stop()
		e.resume = nil
	}
	if e.shortcutOff != nil {
		e.shortcutOff()
		e.shortcutOff = nil
	}
	e.unloaded = true
}

// IsRecording reports whether the engine is recording.
func (e *Engine) IsRecording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recording
}

// SessionID returns the active session id, or "" when idle.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recorder.SessionID()
}

// Actions returns a copy of the current action log.
func (e *Engine) Actions() []domain.Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recorder.Actions()
}

// StartRecording implements channel.Controller.
func (e *Engine) StartRecording() {
	if err := e.Start(); err != nil {
		e.logger.Warn("start recording", ports.Err(err))
	}
}

// StopRecording implements channel.Controller.
func (e *Engine) StopRecording() {
	_ = e.Stop()
}

// SyncRecording stores the flag reported by the consumer.
func (e *Engine) SyncRecording(recording bool) {
	_ = e.store.SetRecording(context.Background(), recording)
}

// Status implements channel.Controller.
func (e *Engine) Status() (string, bool) {
	return e.doc.URL(), e.IsRecording()
}

func (e *Engine) detachLocked() {
	for _, remove := range e.listeners {
		if remove != nil {
			remove()
		}
	}
	e.listeners = nil
}

func (e *Engine) notify(recording bool, sessionID string) {
	if e.observer != nil {
		e.observer.RecordingChanged(recording, sessionID)
	}
}

// handle is the single entry point for DOM events. Faults are recovered
// here and never reach the page.
func (e *Engine) handle(ev ports.Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ObserveDrop(string(ev.Type), "fault")
			e.logger.Error("capture handler fault",
				ports.String("event", string(ev.Type)),
				ports.Err(fmt.Errorf("panic: %v", r)),
			)
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	if ev.Type == ports.EventKeyDown {
		e.shortcutLocked(ev)
		return
	}
	if !e.recording {
		return
	}

	switch ev.Type {
	case ports.EventClick:
		e.recordClickLocked(ev)
	case ports.EventInput:
		e.recordInputLocked(ev)
	case ports.EventScroll:
		e.scroll.Trigger(func() { e.recordScrollLocked(ev) })
	}
}

func (e *Engine) shortcutLocked(ev ports.Event) {
	if !(ev.Ctrl || ev.Meta) || !ev.Shift {
		return
	}
	switch strings.ToLower(ev.Key) {
	case "e", "r":
	default:
		return
	}
	if e.unloaded {
		return
	}
	if err := e.toggleLocked(); err != nil {
		e.logger.Warn("toggle recording", ports.Err(err))
	}
}

func (e *Engine) recordClickLocked(ev ports.Event) {
	sel := selector.Synthesize(ev.Target)
	if sel == selector.Empty {
		metrics.ObserveDrop(string(ev.Type), "empty_selector")
		return
	}
	e.appendLocked(domain.NewClick(sel, snippet(ev.Text, e.cfg.TextSnippetMax), e.eventURL(ev), e.clock.Now()))
}

func (e *Engine) recordInputLocked(ev ports.Event) {
	sel := selector.Synthesize(ev.Target)
	if sel == selector.Empty {
		metrics.ObserveDrop(string(ev.Type), "empty_selector")
		return
	}
	e.appendLocked(domain.NewInput(sel, ev.Value, e.eventURL(ev), e.clock.Now()))
}

func (e *Engine) recordScrollLocked(ev ports.Event) {
	if !e.recording {
		return
	}
	sel := domain.SelectorPage
	if !ev.Document && !ev.Target.IsDocumentLevel() {
		sel = selector.Synthesize(ev.Target)
		if sel == selector.Empty {
			metrics.ObserveDrop(string(ev.Type), "empty_selector")
			return
		}
	}
	e.appendLocked(domain.NewScroll(sel, ev.ScrollTop, ev.ScrollLeft, e.eventURL(ev), e.clock.Now()))
}

func (e *Engine) appendLocked(a domain.Action) {
	if err := e.recorder.Append(a); err != nil {
		e.logger.Warn("append action", ports.String("kind", string(a.Kind)), ports.Err(err))
		return
	}
	e.logger.Debug("action recorded",
		ports.String("kind", string(a.Kind)),
		ports.String("selector", a.Selector),
	)
}

func (e *Engine) eventURL(ev ports.Event) string {
	if ev.URL != "" {
		return ev.URL
	}
	return e.doc.URL()
}

// snippet trims s and cuts it to at most max runes.
func snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
