// Package control lets collaborators drive the recorder of the current page
// with small JSON commands, in process or over a loopback HTTP relay.
package control

import (
	"errors"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/pkg/log"
)

// Actions understood by Handle.
const (
	ActionStartRecording    = "start_recording"
	ActionStopRecording     = "stop_recording"
	ActionGetRecordingState = "get_recording_state"
)

// Command is a request from a collaborator.
type Command struct {
	Action string `json:"action"`
}

// Response answers a Command.
type Response struct {
	Success     bool   `json:"success"`
	IsRecording bool   `json:"isRecording"`
	Error       string `json:"error,omitempty"`
}

// Target is the recorder of one page.
type Target interface {
	Start() error
	Stop() error
	// Status returns the page URL and whether it is recording.
	Status() (url string, recording bool)
}

// Resolver returns the target for the page currently loaded, or nil.
type Resolver func() Target

var errNoPage = errors.New("no page loaded")

// Handler executes commands against whichever page is current.
type Handler struct {
	resolve Resolver
	logger  log.Logger
}

func NewHandler(resolve Resolver, logger log.Logger) *Handler {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Handler{resolve: resolve, logger: logger}
}

// Handle runs cmd. Failures are reported in the Response, never returned.
func (h *Handler) Handle(cmd Command) Response {
	var target Target
	if h.resolve != nil {
		target = h.resolve()
	}

	var err error
	switch cmd.Action {
	case ActionStartRecording:
		err = run(target, Target.Start)
	case ActionStopRecording:
		err = run(target, Target.Stop)
	case ActionGetRecordingState:
		if target == nil {
			return Response{Success: true}
		}
		_, rec := target.Status()
		return Response{Success: true, IsRecording: rec}
	default:
		h.logger.Warn("unknown control action", log.String("action", cmd.Action))
		return Response{Error: "unknown action"}
	}

	resp := Response{Success: err == nil}
	if target != nil {
		_, resp.IsRecording = target.Status()
	}
	if err != nil {
		resp.Error = err.Error()
		level := h.logger.Warn
		if errors.Is(err, domain.ErrPageIneligible) {
			level = h.logger.Info
		}
		level("control command failed", log.String("action", cmd.Action), log.Err(err))
	}
	return resp
}

func run(t Target, fn func(Target) error) error {
	if t == nil {
		return errNoPage
	}
	return fn(t)
}
