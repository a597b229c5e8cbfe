// Package state is the recorder's durable local fallback.
//
// It keeps two things across page reloads: the recording flag, so a reload
// or navigation resumes recording without a fresh start, and the most
// recent session snapshot, so captured data survives when the sync channel
// cannot deliver it.
//
// # Usage
//
//	repo, err := recship.OpenRepository(ctx, recship.StoreFile, dir)
//	if err != nil {
//	    return err
//	}
//	fb := state.NewFallback(repo, logger)
//
//	if fb.Recording(ctx) {
//	    // resume recording
//	}
//	fb.SaveSession(ctx, session)
//
// Write failures are logged and returned, but callers treat them as
// non-fatal: recording carries on without the durability guarantee for
// that write.
//
// # Storage
//
// Values are plain strings under fixed keys (see [KeyRecording] and
// [KeyLastSession]). The flag is stored as "true"/"false" and the session
// as JSON. The file adapter keeps all keys in one JSON file written
// atomically; the sqlite adapter stores them in a table.
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
package state
