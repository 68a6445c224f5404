// Package repositories implements SQLite persistence for the local backend.
//
// Key Implementations:
//   - [PlaylistRepository] : named playlists with ordered tracks, listed in creation order
//   - [SettingsRepository] : key/value module settings such as the default playlist
//
// Sequence numbers keep creation order stable across renames.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
