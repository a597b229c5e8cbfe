package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/recship/pkg/state"
)

var _ state.Repository = (*KVFile)(nil)

func TestKVFile_MissingFile(t *testing.T) {
	r, err := NewKVFile(filepath.Join(t.TempDir(), "nested"))
	require.NoError(t, err)

	_, ok, err := r.Get(context.Background(), state.KeyRecording)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVFile_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	r, err := NewKVFile(dir)
	require.NoError(t, err)
	require.NoError(t, r.Set(ctx, state.KeyRecording, "true"))
	require.NoError(t, r.Set(ctx, state.KeyLastSession, `{"id":"a"}`))
	require.NoError(t, r.Close())

	info, err := os.Stat(r.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := NewKVFile(dir)
	require.NoError(t, err)
	v, ok, err := again.Get(ctx, state.KeyRecording)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "true", v)

	v, _, _ = again.Get(ctx, state.KeyLastSession)
	assert.Equal(t, `{"id":"a"}`, v)
}

func TestKVFile_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stateFileName), []byte("{"), 0o600))

	_, err := NewKVFile(dir)
	require.Error(t, err)
}

func TestKVFile_FailedWriteKeepsCache(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	r, err := NewKVFile(dir)
	require.NoError(t, err)
	require.NoError(t, r.Set(ctx, "k", "v1"))

	// Point the store below a regular file so MkdirAll fails.
	r.dir = filepath.Join(dir, stateFileName, "sub")
	require.Error(t, r.Set(ctx, "k", "v2"))

	v, _, _ := r.Get(ctx, "k")
	assert.Equal(t, "v1", v)
}

func TestKVFile_CanceledContext(t *testing.T) {
	r, err := NewKVFile(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, r.Set(ctx, "k", "v"), context.Canceled)
}
