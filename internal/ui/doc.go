// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for managing playlists:
//  1. [PlaylistsView] : Browse playlists, set the default one, play, delete
//  2. [EditorView] : Name a playlist and allocate tracks between the available and playlist panes
//  3. [FilesView] : Browse and delete music files
//  4. [ConfirmView] : Confirm a playlist deletion
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Configuration snapshots flow from the services.ConfigFeed through a mailbox into the reconciler, so the playlist
// list always mirrors the backend.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
