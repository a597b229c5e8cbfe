package channel

import (
	"encoding/json"

	"github.com/bft-labs/recship/internal/domain"
)

// Outbound message types.
const (
	TypeStatus           = "status"
	TypeRecordingStarted = "recording_started"
	TypeRecordingStopped = "recording_stopped"
	TypeTestGenerated    = "test_generated"
	TypePong             = "pong"
)

// Inbound message types.
const (
	TypeStartRecording = "start_recording"
	TypeStopRecording  = "stop_recording"
	TypeConnected      = "connected"
	TypePing           = "ping"
	TypeError          = "error"
	TypeWarning        = "warning"
	TypeInfo           = "info"
)

// Message is an outbound message. Only the fields its type uses are set.
type Message struct {
	Type      string          `json:"type"`
	Connected *bool           `json:"connected,omitempty"`
	URL       string          `json:"url,omitempty"`
	Recording *bool           `json:"recording,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	TestData  *domain.Session `json:"testData,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// Status announces the page and its recording state.
func Status(url string, recording bool) Message {
	connected := true
	return Message{Type: TypeStatus, Connected: &connected, URL: url, Recording: &recording}
}

// RecordingStarted announces a new session.
func RecordingStarted(url, sessionID string) Message {
	return Message{Type: TypeRecordingStarted, URL: url, SessionID: sessionID}
}

// RecordingStopped announces the end of a session.
func RecordingStopped(url, sessionID string) Message {
	return Message{Type: TypeRecordingStopped, URL: url, SessionID: sessionID}
}

// TestGenerated carries a finalized session.
func TestGenerated(s domain.Session) Message {
	return Message{Type: TypeTestGenerated, TestData: &s}
}

// Pong answers a keepalive ping.
func Pong(timestampMillis int64) Message {
	return Message{Type: TypePong, Timestamp: timestampMillis}
}

// inbound is the union of every inbound message's fields.
type inbound struct {
	Type      string          `json:"type"`
	Recording *bool           `json:"recording,omitempty"`
	Error     string          `json:"error,omitempty"`
	Message   string          `json:"message,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
}

func (m inbound) text() string {
	if m.Error != "" {
		return m.Error
	}
	return m.Message
}
