package app

import (
	"context"
	"sync"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/internal/ports"
	"github.com/bft-labs/recship/pkg/channel"
	"github.com/bft-labs/recship/pkg/dom"
)

// fakeDocument is an in-memory ports.Document.
type fakeDocument struct {
	mu        sync.Mutex
	url       string
	meta      domain.Metadata
	metaErr   error
	nextID    int
	listeners map[ports.EventType]map[int]func(ports.Event)
}

func newFakeDocument(url string) *fakeDocument {
	return &fakeDocument{
		url:       url,
		meta:      domain.Metadata{Title: "Fake Page", Viewport: domain.Viewport{Width: 1024, Height: 768}, UserAgent: "fake-agent"},
		listeners: make(map[ports.EventType]map[int]func(ports.Event)),
	}
}

func (d *fakeDocument) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

func (d *fakeDocument) setMetadata(m domain.Metadata) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta = m
}

func (d *fakeDocument) Metadata(context.Context) (domain.Metadata, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.meta, d.metaErr
}

func (d *fakeDocument) Listen(t ports.EventType, fn func(ports.Event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	if d.listeners[t] == nil {
		d.listeners[t] = make(map[int]func(ports.Event))
	}
	d.listeners[t][id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners[t], id)
	}
}

func (d *fakeDocument) count(t ports.EventType) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners[t])
}

func (d *fakeDocument) dispatch(ev ports.Event) {
	d.mu.Lock()
	var fns []func(ports.Event)
	for _, fn := range d.listeners[ev.Type] {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (d *fakeDocument) click(target *dom.Node, text string) {
	d.dispatch(ports.Event{Type: ports.EventClick, Target: target, Text: text})
}

func (d *fakeDocument) input(target *dom.Node, value string) {
	d.dispatch(ports.Event{Type: ports.EventInput, Target: target, Value: value})
}

func (d *fakeDocument) scroll(target *dom.Node, top, left float64) {
	d.dispatch(ports.Event{Type: ports.EventScroll, Target: target, ScrollTop: top, ScrollLeft: left})
}

func (d *fakeDocument) key(key string, ctrl, meta, shift bool) {
	d.dispatch(ports.Event{Type: ports.EventKeyDown, Key: key, Ctrl: ctrl, Meta: meta, Shift: shift})
}

// fakeSender records every message it is asked to send.
type fakeSender struct {
	mu   sync.Mutex
	msgs []channel.Message
}

func (s *fakeSender) Send(_ context.Context, msg channel.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *fakeSender) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, m.Type)
	}
	return out
}

func (s *fakeSender) last(msgType string) (channel.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.msgs) - 1; i >= 0; i-- {
		if s.msgs[i].Type == msgType {
			return s.msgs[i], true
		}
	}
	return channel.Message{}, false
}

type observed struct {
	recording bool
	sessionID string
}

type fakeObserver struct {
	mu     sync.Mutex
	events []observed
}

func (o *fakeObserver) RecordingChanged(recording bool, sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, observed{recording, sessionID})
}

// panicLogger panics on Debug, which the engine calls after appending.
type panicLogger struct{}

func (panicLogger) Debug(string, ...ports.Field) { panic("logger exploded") }
func (panicLogger) Info(string, ...ports.Field)  {}
func (panicLogger) Warn(string, ...ports.Field)  {}
func (panicLogger) Error(string, ...ports.Field) {}

// scenarioTree builds body > div > div > (button.btn, button.btn.primary)
// plus a classless body > section > a.
func scenarioTree() (body, button, bare *dom.Node) {
	body = dom.NewElement("body")
	outer := body.AppendChild(dom.NewElement("div"))
	wrapper := outer.AppendChild(dom.NewElement("div"))
	wrapper.AppendChild(dom.NewElement("button", "btn"))
	button = wrapper.AppendChild(dom.NewElement("button", "btn", "primary"))
	bare = body.AppendChild(dom.NewElement("section")).AppendChild(dom.NewElement("a"))
	return body, button, bare
}
