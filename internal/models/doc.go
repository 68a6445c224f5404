// Package models defines the domain entities shared by the playlist editor, the backend and the transports.
//
// The package contains:
//   - [FileEntry] : A music file of the catalog, identified by its filename
//   - [PlaylistEntry] : A displayable playlist with its default marker
//   - [Playlists] : The server's playlist mapping, name → ordered filenames, in insertion order
//   - [ConfigSnapshot] : A complete copy of the server-owned module configuration
//
// [Playlists] keeps JSON object key order on decode and encode, because the order in which the
// server lists playlists is the order the client displays them.
package models
