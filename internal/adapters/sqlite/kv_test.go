package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/recship/internal/domain"
	"github.com/bft-labs/recship/pkg/state"
)

var _ state.Repository = (*KV)(nil)

func TestKV_GetSet(t *testing.T) {
	ctx := context.Background()
	kv, err := Open(ctx, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	_, ok, err := kv.Get(ctx, state.KeyRecording)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, state.KeyRecording, "true"))
	require.NoError(t, kv.Set(ctx, state.KeyRecording, "false"))

	v, ok, err := kv.Get(ctx, state.KeyRecording)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "false", v)
}

func TestKV_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	kv, err := Open(ctx, dir)
	require.NoError(t, err)
	fb := state.NewFallback(kv, nil)
	require.NoError(t, fb.SaveSession(ctx, domain.Session{ID: "s-1", Title: "Checkout"}))
	require.NoError(t, fb.Close())

	kv, err = Open(ctx, dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	s, err := state.NewFallback(kv, nil).LastSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "s-1", s.ID)
	assert.Equal(t, "Checkout", s.Title)
}
