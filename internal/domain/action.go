package domain

import "time"

// ActionKind identifies the interaction an Action records.
type ActionKind string

const (
	ActionClick  ActionKind = "click"
	ActionInput  ActionKind = "input"
	ActionScroll ActionKind = "scroll"
)

// Reserved selectors. They are the only selectors not produced by synthesis.
const (
	// SelectorBody names the root container itself.
	SelectorBody = "body"

	// SelectorPage names page-level scrolling.
	SelectorPage = "html"
)

// Action is one recorded user interaction.
//
// The JSON shape is what the test generator consumes. Optional fields are
// pointers so that zero values (an empty input, a scroll back to 0) are still
// emitted.
type Action struct {
	Kind       ActionKind `json:"type"`
	Selector   string     `json:"selector"`
	Value      *string    `json:"value,omitempty"`
	Text       *string    `json:"text,omitempty"`
	ScrollTop  *float64   `json:"scrollTop,omitempty"`
	ScrollLeft *float64   `json:"scrollLeft,omitempty"`
	Timestamp  int64      `json:"timestamp"`
	PageURL    string     `json:"url"`
}

// NewClick builds a click action with the given text snippet.
func NewClick(selector, text, pageURL string, at time.Time) Action {
	return Action{
		Kind:      ActionClick,
		Selector:  selector,
		Text:      &text,
		Timestamp: at.UnixMilli(),
		PageURL:   pageURL,
	}
}

// NewInput builds an input action carrying the field's raw value.
func NewInput(selector, value, pageURL string, at time.Time) Action {
	return Action{
		Kind:      ActionInput,
		Selector:  selector,
		Value:     &value,
		Timestamp: at.UnixMilli(),
		PageURL:   pageURL,
	}
}

// NewScroll builds a scroll action holding the settled position.
func NewScroll(selector string, top, left float64, pageURL string, at time.Time) Action {
	return Action{
		Kind:       ActionScroll,
		Selector:   selector,
		ScrollTop:  &top,
		ScrollLeft: &left,
		Timestamp:  at.UnixMilli(),
		PageURL:    pageURL,
	}
}
