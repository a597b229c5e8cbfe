// Package domain contains the core entities of recship.
//
// It has no dependencies on infrastructure (browser, WebSocket, storage,
// logging) and holds only the recorded data and its rules.
//
// # Entities
//
//   - [Action]: one recorded interaction (click, input or settled scroll)
//   - [Session]: one recording run's finalized action log plus page metadata
//   - [PersistedState]: what survives a page reload (recording flag, last session)
//
// Actions are immutable once appended. A Session is mutated only while its
// recording is in progress and is immutable after finalization.
package domain
