package recship

import "github.com/bft-labs/recship/internal/app"

// State is the lifecycle state of a Recship instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

func (s State) String() string { return app.State(s).String() }

func convertState(s app.State) State {
	switch s {
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

// StateChangeEvent reports a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// PageEvent reports a newly loaded page.
type PageEvent struct {
	URL      string
	Eligible bool
}

// RecordingEvent reports that a page started or stopped recording.
type RecordingEvent struct {
	URL       string
	SessionID string
	Recording bool
}

// EventHandler receives notifications. Methods are called synchronously
// and should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnPageLoaded(event PageEvent)
	OnRecordingChange(event RecordingEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)   {}
func (BaseEventHandler) OnPageLoaded(PageEvent)           {}
func (BaseEventHandler) OnRecordingChange(RecordingEvent) {}

// emitter adapts an optional EventHandler to the internal callbacks.
type emitter struct {
	handler EventHandler
}

func (e emitter) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e emitter) pageLoaded(url string, eligible bool) {
	if e.handler != nil {
		e.handler.OnPageLoaded(PageEvent{URL: url, Eligible: eligible})
	}
}

func (e emitter) recordingChanged(url, sessionID string, recording bool) {
	if e.handler != nil {
		e.handler.OnRecordingChange(RecordingEvent{URL: url, SessionID: sessionID, Recording: recording})
	}
}
