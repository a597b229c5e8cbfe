package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/pkg/channel"
	"github.com/bft-labs/recship/pkg/log"
	"github.com/bft-labs/recship/pkg/state"
)

func TestRecorder_AppendWithoutSession(t *testing.T) {
	r := NewRecorder(&fakeSender{}, state.NewFallback(state.NewMemoryRepository(), nil), log.NewNoopLogger())

	err := r.Append(domain.NewClick(".a", "", testURL, time.Now()))
	assert.ErrorIs(t, err, domain.ErrNoSession)

	_, err = r.Finalize(context.Background(), domain.Metadata{})
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestRecorder_FinalizeEmitsOnce(t *testing.T) {
	sender := &fakeSender{}
	repo := state.NewMemoryRepository()
	r := NewRecorder(sender, state.NewFallback(repo, nil), log.NewNoopLogger())

	start := time.UnixMilli(1700000000000)
	opened := r.Begin(testURL, start)
	assert.True(t, r.Open())
	assert.Equal(t, start.UnixMilli(), opened.StartedAt)

	require.NoError(t, r.Append(domain.NewClick(".a", "A", testURL, start)))
	sess, err := r.Finalize(context.Background(), domain.Metadata{Title: "Cart"})
	require.NoError(t, err)
	assert.False(t, r.Open())

	assert.Equal(t, opened.ID, sess.ID)
	assert.Equal(t, "Cart", sess.Title)
	assert.Equal(t, []string{channel.TypeTestGenerated}, sender.types())

	// The snapshot does not share the live log.
	r.Begin(testURL, start)
	require.NoError(t, r.Append(domain.NewClick(".b", "B", testURL, start)))
	assert.Len(t, sess.Actions, 1)
	assert.Equal(t, ".a", sess.Actions[0].Selector)

	// A second finalize of the same session is impossible.
	_, err = r.Finalize(context.Background(), domain.Metadata{})
	require.NoError(t, err)
	_, err = r.Finalize(context.Background(), domain.Metadata{})
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestRecorder_BeginDiscardsPrevious(t *testing.T) {
	r := NewRecorder(&fakeSender{}, state.NewFallback(state.NewMemoryRepository(), nil), log.NewNoopLogger())

	first := r.Begin(testURL, time.Now())
	require.NoError(t, r.Append(domain.NewClick(".a", "", testURL, time.Now())))
	second := r.Begin(testURL, time.Now())

	assert.NotEqual(t, first.ID, second.ID)
	assert.Empty(t, r.Actions())
	assert.Equal(t, second.ID, r.SessionID())
}
