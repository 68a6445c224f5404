// package services defines the [Dispatcher] interface for issuing localmusic commands, with an HTTP client
// and an in-process backend implementing it.
package services

import (
	"context"
	"encoding/json"
	"io"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
)

// ModuleName is the recipient of every command.
const ModuleName = "localmusic"

// Command names understood by the backend.
const (
	CommandGetMusicFiles      = "get_music_files"
	CommandAddMusicFile       = "add_music_file"
	CommandDeleteMusicFile    = "delete_music_file"
	CommandAddPlaylist        = "add_playlist"
	CommandUpdatePlaylist     = "update_playlist"
	CommandDeletePlaylist     = "delete_playlist"
	CommandSetDefaultPlaylist = "set_default_playlist"
	CommandPlayPlaylist       = "play_playlist"
	CommandStopPlayback       = "stop_playback"
	CommandStartAlarm         = "start_alarm"
	CommandStopAlarm          = "stop_alarm"
	CommandGetPlayback        = "get_playback"
	CommandGetModuleConfig    = "get_module_config"
)

// Dispatcher issues the discrete remote operations of the localmusic module.
//
// Every method either succeeds or returns an error; nothing is retried.
type Dispatcher interface {
	// ListFiles returns the music file catalog.
	ListFiles(ctx context.Context) ([]models.FileEntry, error)

	// AddFile uploads the content of r as a new music file named name.
	AddFile(ctx context.Context, name string, r io.Reader) error

	// DeleteFile removes a music file. Playlists referencing it are pruned.
	DeleteFile(ctx context.Context, filename string) error

	// AddPlaylist creates a playlist holding files in the given order.
	AddPlaylist(ctx context.Context, name string, files []string) error

	// UpdatePlaylist replaces the tracks of name and renames it to newName. An empty newName keeps the name.
	UpdatePlaylist(ctx context.Context, name, newName string, files []string) error

	// DeletePlaylist removes a playlist.
	DeletePlaylist(ctx context.Context, name string) error

	// SetDefaultPlaylist flags a playlist for automatic playback.
	SetDefaultPlaylist(ctx context.Context, name string) error

	// PlayPlaylist starts playback of a playlist, replacing the current one.
	PlayPlaylist(ctx context.Context, name string, opts models.PlayOptions) error

	// StopPlayback ends the current playback, if any.
	StopPlayback(ctx context.Context) error

	// StartAlarm resumes a paused playback or starts the default playlist when nothing plays.
	StartAlarm(ctx context.Context, opts models.PlayOptions) error

	// StopAlarm pauses playback when snoozed and stops it otherwise.
	StopAlarm(ctx context.Context, snoozed bool) error

	// GetPlayback reports the current playback.
	GetPlayback(ctx context.Context) (models.Playback, error)

	// GetConfig returns the current module configuration.
	GetConfig(ctx context.Context) (models.ConfigSnapshot, error)
}

// ConfigGetter returns the current module configuration.
type ConfigGetter interface {
	GetConfig(ctx context.Context) (models.ConfigSnapshot, error)
}

// Publisher receives every new configuration snapshot.
type Publisher interface {
	Publish(snapshot models.ConfigSnapshot)
}

// Request is the JSON body of a command.
type Request struct {
	Command string          `json:"command"`
	To      string          `json:"to"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the JSON envelope every command answers with.
type Response struct {
	Error   bool            `json:"error"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// FileParams are the parameters of file commands.
type FileParams struct {
	Filename string `json:"filename"`
}

// PlaylistParams are the parameters of playlist commands. Play options only apply to play_playlist.
type PlaylistParams struct {
	PlaylistName    string   `json:"playlist_name"`
	NewPlaylistName string   `json:"new_playlist_name,omitempty"`
	Files           []string `json:"files,omitempty"`
	models.PlayOptions
}

// AlarmParams are the parameters of alarm commands.
type AlarmParams struct {
	models.PlayOptions
	Snoozed bool `json:"snoozed,omitempty"`
}
