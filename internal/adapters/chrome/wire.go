package chrome

import (
	"encoding/json"
	"fmt"

	"github.com/bft-labs/recship/internal/ports"
	"github.com/bft-labs/recship/pkg/dom"
)

// Shim message types that are not DOM events.
const (
	msgLoad   = "load"
	msgUnload = "unload"
)

// wireEvent is one message from the shim.
type wireEvent struct {
	Type       string        `json:"type"`
	Doc        string        `json:"doc"`
	URL        string        `json:"url"`
	Document   bool          `json:"document,omitempty"`
	Text       string        `json:"text,omitempty"`
	Value      string        `json:"value,omitempty"`
	ScrollTop  float64       `json:"scrollTop,omitempty"`
	ScrollLeft float64       `json:"scrollLeft,omitempty"`
	Key        string        `json:"key,omitempty"`
	Ctrl       bool          `json:"ctrl,omitempty"`
	Meta       bool          `json:"meta,omitempty"`
	Shift      bool          `json:"shift,omitempty"`
	Target     *dom.Ancestry `json:"target,omitempty"`
}

func decodeWire(payload string) (wireEvent, error) {
	var w wireEvent
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return w, fmt.Errorf("decode shim message: %w", err)
	}
	if w.Type == "" {
		return w, fmt.Errorf("decode shim message: missing type")
	}
	return w, nil
}

// event converts a DOM event message. The target fragment is rebuilt from
// the reported ancestry.
func (w wireEvent) event() (ports.Event, error) {
	ev := ports.Event{
		Type:       ports.EventType(w.Type),
		Document:   w.Document,
		URL:        w.URL,
		Text:       w.Text,
		Value:      w.Value,
		ScrollTop:  w.ScrollTop,
		ScrollLeft: w.ScrollLeft,
		Key:        w.Key,
		Ctrl:       w.Ctrl,
		Meta:       w.Meta,
		Shift:      w.Shift,
	}
	switch ev.Type {
	case ports.EventClick, ports.EventInput, ports.EventScroll, ports.EventKeyDown:
	default:
		return ev, fmt.Errorf("unknown shim event %q", w.Type)
	}
	if w.Target != nil && !w.Document {
		target, err := w.Target.Build()
		if err != nil {
			return ev, err
		}
		ev.Target = target
	}
	return ev, nil
}
