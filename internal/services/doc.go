// Package services defines the [Dispatcher] interface for the localmusic command set and implements it twice.
//
// # Dispatcher Interface
//
// A Dispatcher issues the discrete operations of the module: listing, uploading and deleting music files,
// creating, updating, deleting and playing playlists, choosing the default playlist and reading the module
// configuration. Every call returns success or an error; nothing is retried.
//
// # RPC Implementation
//
// [RPCDispatcher] speaks the backend's command protocol over HTTP. Commands are POSTed to /command as
//
//	{"command": "add_playlist", "to": "localmusic", "params": {"playlist_name": "Mix", "files": [...]}}
//
// and uploads are multipart POSTs to /upload. Every answer is a [Response] envelope; "error": true maps to
// [shared.ErrRemoteCommand] carrying the backend message. Commands are rate limited with [rate.Limiter].
//
// # Local Implementation
//
// [LocalBackend] is the backend itself: a music [library.Library] for files, SQLite repositories for
// playlists and settings, and an optional [Player]. It keeps playlists consistent with the files on disk,
// pruning missing tracks and deleting playlists left empty, and publishes the configuration after every change.
//
// # Configuration Feed
//
// [ConfigFeed] fans configuration snapshots out to subscribers, either pushed by the local backend or pulled
// through [ConfigFeed.Reload]. It satisfies the subscription and reload interfaces of the playlist package.
//
// # Error Handling
//
// Services use sentinel errors from the shared package:
//   - [shared.ErrRemoteCommand] : the backend rejected a command
//   - [shared.ErrRemoteFetch] : a configuration reload failed
//   - [shared.ErrServiceUnavailable] : the backend could not be reached
//   - [shared.ErrPlaylistNotFound], [shared.ErrPlaylistExists], [shared.ErrEmptyPlaylist] : playlist rules
//   - [shared.ErrFileNotFound], [shared.ErrFileExists], [shared.ErrInvalidExtension] : file rules
package services
