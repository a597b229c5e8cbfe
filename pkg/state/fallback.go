package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/internal/metrics"
	"github.com/bft-labs/recship/pkg/log"
)

// Fallback persists the recording flag and the last session snapshot.
// It is safe for concurrent use when the underlying Repository is.
type Fallback struct {
	repo   Repository
	logger log.Logger
}

// NewFallback wraps repo. A nil logger discards log output.
func NewFallback(repo Repository, logger log.Logger) *Fallback {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Fallback{repo: repo, logger: logger}
}

// Load reads the persisted state. Missing keys yield zero values; a corrupt
// session snapshot is logged and reported as absent.
func (f *Fallback) Load(ctx context.Context) (domain.PersistedState, error) {
	var st domain.PersistedState

	rec, err := f.recording(ctx)
	if err != nil {
		return st, err
	}
	st.Recording = rec

	sess, err := f.LastSession(ctx)
	if err != nil {
		return st, err
	}
	st.LastSession = sess
	return st, nil
}

// Recording reports the persisted flag. Read errors are logged and treated
// as false so a broken store never auto-starts a recording.
func (f *Fallback) Recording(ctx context.Context) bool {
	rec, err := f.recording(ctx)
	if err != nil {
		f.logger.Warn("read recording flag", log.Err(err))
		return false
	}
	return rec
}

func (f *Fallback) recording(ctx context.Context) (bool, error) {
	v, ok, err := f.repo.Get(ctx, KeyRecording)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", KeyRecording, err)
	}
	if !ok {
		return false, nil
	}
	return v == strconv.FormatBool(true), nil
}

// SetRecording persists the flag.
func (f *Fallback) SetRecording(ctx context.Context, recording bool) error {
	err := f.repo.Set(ctx, KeyRecording, strconv.FormatBool(recording))
	metrics.ObserveFallbackWrite(KeyRecording, err)
	if err != nil {
		f.logger.Warn("persist recording flag",
			log.Bool("recording", recording),
			log.Err(err),
		)
		return fmt.Errorf("set %s: %w", KeyRecording, err)
	}
	return nil
}

// SaveSession persists s as the last session snapshot.
func (f *Fallback) SaveSession(ctx context.Context, s domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		f.logger.Error("encode session", log.String("session_id", s.ID), log.Err(err))
		return fmt.Errorf("encode session: %w", err)
	}
	return f.SaveRaw(ctx, data)
}

// SaveRaw persists an already encoded session snapshot verbatim.
func (f *Fallback) SaveRaw(ctx context.Context, data []byte) error {
	err := f.repo.Set(ctx, KeyLastSession, string(data))
	metrics.ObserveFallbackWrite(KeyLastSession, err)
	if err != nil {
		f.logger.Warn("persist last session", log.Int("bytes", len(data)), log.Err(err))
		return fmt.Errorf("set %s: %w", KeyLastSession, err)
	}
	f.logger.Debug("last session saved", log.Int("bytes", len(data)))
	return nil
}

// LastSession returns the stored snapshot, or nil when none was saved.
func (f *Fallback) LastSession(ctx context.Context) (*domain.Session, error) {
	raw, err := f.LastSessionRaw(ctx)
	if err != nil || raw == nil {
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		f.logger.Warn("discard corrupt session snapshot", log.Err(err))
		return nil, nil
	}
	return &s, nil
}

// LastSessionRaw returns the stored snapshot bytes exactly as written.
func (f *Fallback) LastSessionRaw(ctx context.Context) ([]byte, error) {
	v, ok, err := f.repo.Get(ctx, KeyLastSession)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", KeyLastSession, err)
	}
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

// Close closes the underlying repository.
func (f *Fallback) Close() error {
	return f.repo.Close()
}
