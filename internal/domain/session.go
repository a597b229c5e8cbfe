package domain

// DefaultTitle is used when the document has no title at finalize time.
const DefaultTitle = "Recorded Test"

// Viewport is the inner window size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Metadata describes the page at finalize time.
type Metadata struct {
	Title     string
	Viewport  Viewport
	UserAgent string
}

// Session is one recording run's finalized action log plus metadata.
// It is the `testData` payload of a test_generated message.
type Session struct {
	ID        string   `json:"id"`
	OriginURL string   `json:"url"`
	Actions   []Action `json:"actions"`
	StartedAt int64    `json:"timestamp"`
	Title     string   `json:"title"`
	UserAgent string   `json:"userAgent"`
	Viewport  Viewport `json:"viewport"`
}

// Finalized returns a copy of s with its own action slice and the given
// metadata applied.
func (s Session) Finalized(actions []Action, meta Metadata) Session {
	out := s
	out.Actions = make([]Action, len(actions))
	copy(out.Actions, actions)
	out.Title = meta.Title
	if out.Title == "" {
		out.Title = DefaultTitle
	}
	out.UserAgent = meta.UserAgent
	out.Viewport = meta.Viewport
	return out
}

// PersistedState is the durable part of the recorder: it survives page
// reloads and navigation.
type PersistedState struct {
	Recording   bool
	LastSession *Session
}
