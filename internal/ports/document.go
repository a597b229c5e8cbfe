package ports

import (
	"context"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/pkg/dom"
)

// EventType names a DOM event the recorder listens for.
type EventType string

const (
	EventClick   EventType = "click"
	EventInput   EventType = "input"
	EventScroll  EventType = "scroll"
	EventKeyDown EventType = "keydown"
)

// Event is a DOM event as seen by the recorder.
type Event struct {
	Type EventType

	// Target is the event target inside a fragment rooted at body. It is
	// nil when the target is the document itself.
	Target *dom.Node

	// Document is set when a scroll targets the document or its root.
	Document bool

	// URL is the page URL when the event fired.
	URL string

	Text  string // trimmed visible text of a click target
	Value string // current value of an input target

	// ScrollTop and ScrollLeft are page offsets for document scrolls and
	// element offsets otherwise.
	ScrollTop  float64
	ScrollLeft float64

	Key   string
	Ctrl  bool
	Meta  bool
	Shift bool
}

// Document is the page being recorded.
type Document interface {
	// URL returns the current page URL.
	URL() string

	// Metadata reads the title, viewport and user agent as they are now.
	Metadata(ctx context.Context) (domain.Metadata, error)

	// Listen registers a capture-phase listener. The returned function
	// removes it. Listeners never cancel or stop propagation.
	Listen(t EventType, fn func(Event)) (remove func())
}

// Notifier shows a short non-blocking notice on the page.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// StateObserver is told when recording starts or stops.
type StateObserver interface {
	RecordingChanged(recording bool, sessionID string)
}

// Page is a loaded document that can also show notices.
type Page interface {
	Document
	Notifier
}

// PageEvents receives page lifecycle callbacks from a Browser. Calls are
// serialized and never overlap.
type PageEvents interface {
	// PageLoaded is called when a new top-level document is ready.
	PageLoaded(p Page)

	// PageUnloaded is called when p is navigated away from or closed.
	PageUnloaded(p Page)
}

// Browser hosts the pages being recorded.
type Browser interface {
	// Open launches the browser, navigates to startURL and reports page
	// lifecycle to events until Close.
	Open(ctx context.Context, startURL string, events PageEvents) error

	// Current returns the loaded page, or nil.
	Current() Page

	// Close shuts the browser down. The current page is unloaded first.
	Close() error
}
