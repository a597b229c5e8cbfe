//go:build !windows

package fs

import (
	"fmt"

	"github.com/google/renameio/v2"
)

// writeFile replaces path with data: fsync before rename, so a crash leaves
// either the old or the new content.
func writeFile(path string, data []byte) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending state file: %w", err)
	}
	defer pending.Cleanup() //nolint:errcheck

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write state data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace state file: %w", err)
	}
	return nil
}
