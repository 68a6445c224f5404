// Package tasks runs bulk library operations against a localmusic backend with real-time progress reporting.
//
// # Core Operations
//
// The [Engine] interface defines three operations:
//
//  1. [Engine.BulkUpload] : Upload many music files
//     - Expands directories into the music files they contain
//     - Optionally skips files whose name is already in the catalog
//     - Uploads through a rate limited worker pool
//
//  2. [Engine.BulkExport] : Export playlists to files
//     - Fetches the configuration and the catalog once
//     - Renders each playlist with the formatter package (json, csv, markdown, txt, m3u)
//     - Writes export_manifest.json summarizing the run
//
//  3. [Engine.Dump] : Fetch everything the backend reports
//     - Catalog, configuration and playback status, for backup or debugging
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [LibraryEngine] implements [Engine] on any services.Dispatcher, remote or in-process.
package tasks
