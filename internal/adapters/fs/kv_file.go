// Package fs stores the recorder's fallback state in a single JSON file.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const stateFileName = "recship.json"

// KVFile implements state.Repository on top of one JSON object file.
// Every Set rewrites the whole file atomically.
type KVFile struct {
	dir string

	mu   sync.Mutex
	data map[string]string
}

// NewKVFile opens (or lazily creates) the state file in dir.
func NewKVFile(dir string) (*KVFile, error) {
	r := &KVFile{dir: dir}
	data, err := r.read()
	if err != nil {
		return nil, err
	}
	r.data = data
	return r, nil
}

func (r *KVFile) read() (map[string]string, error) {
	raw, err := os.ReadFile(r.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	data := map[string]string{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode state file %s: %w", r.Path(), err)
	}
	return data, nil
}

// Get returns the cached value for key.
func (r *KVFile) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[key]
	return v, ok, nil
}

// Set stores value and flushes the file before returning. The in-memory
// view only changes once the write succeeded.
func (r *KVFile) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]string, len(r.data)+1)
	for k, v := range r.data {
		next[k] = v
	}
	next[key] = value

	raw, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}
	if err := writeFile(r.Path(), raw); err != nil {
		return err
	}
	r.data = next
	return nil
}

// Close is a no-op; every Set is already durable.
func (r *KVFile) Close() error { return nil }

// Path returns the full path to the state file.
func (r *KVFile) Path() string {
	return filepath.Join(r.dir, stateFileName)
}
