package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/internal/metrics"
	"github.com/bft-labs/recship/internal/ports"
	"github.com/bft-labs/recship/pkg/channel"
)

// Sender delivers messages to the consumer.
type Sender interface {
	Send(ctx context.Context, msg channel.Message) error
}

// Store is the durable fallback the engine and recorder write to.
type Store interface {
	Recording(ctx context.Context) bool
	SetRecording(ctx context.Context, recording bool) error
	SaveSession(ctx context.Context, s domain.Session) error
}

// Recorder owns the current session and its action log. Only the engine
// calls it, under the engine's lock.
type Recorder struct {
	sender Sender
	store  Store
	logger ports.Logger

	session *domain.Session
	actions []domain.Action
}

// NewRecorder creates a Recorder with no open session.
func NewRecorder(sender Sender, store Store, logger ports.Logger) *Recorder {
	return &Recorder{sender: sender, store: store, logger: logger}
}

// Begin discards any previous session and opens a new one with a fresh id.
func (r *Recorder) Begin(originURL string, at time.Time) domain.Session {
	r.session = &domain.Session{
		ID:        newSessionID(),
		OriginURL: originURL,
		StartedAt: at.UnixMilli(),
	}
	r.actions = r.actions[:0:0]
	return *r.session
}

// Open reports whether a session is in progress.
func (r *Recorder) Open() bool {
	return r.session != nil
}

// SessionID returns the open session's id, or "".
func (r *Recorder) SessionID() string {
	if r.session == nil {
		return ""
	}
	return r.session.ID
}

// Append adds a to the log.
func (r *Recorder) Append(a domain.Action) error {
	if r.session == nil {
		return domain.ErrNoSession
	}
	r.actions = append(r.actions, a)
	metrics.ActionsRecorded.WithLabelValues(string(a.Kind)).Inc()
	return nil
}

// Actions returns a copy of the log. It stays readable after Finalize
// until the next Begin.
func (r *Recorder) Actions() []domain.Action {
	out := make([]domain.Action, len(r.actions))
	copy(out, r.actions)
	return out
}

// Finalize closes the session, snapshots it with meta and emits it once to
// the store and once to the sender. Delivery failures are logged.
func (r *Recorder) Finalize(ctx context.Context, meta domain.Metadata) (domain.Session, error) {
	if r.session == nil {
		return domain.Session{}, domain.ErrNoSession
	}
	snapshot := r.session.Finalized(r.actions, meta)
	r.session = nil
	metrics.SessionsFinalized.Inc()

	r.logger.Info("session finalized",
		ports.String("session_id", snapshot.ID),
		ports.Int("actions", len(snapshot.Actions)),
	)

	if err := r.store.SaveSession(ctx, snapshot); err != nil {
		r.logger.Warn("session not persisted", ports.String("session_id", snapshot.ID), ports.Err(err))
	}
	if err := r.sender.Send(ctx, channel.TestGenerated(snapshot)); err != nil {
		r.logger.Debug("session not delivered", ports.String("session_id", snapshot.ID), ports.Err(err))
	}
	return snapshot, nil
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
