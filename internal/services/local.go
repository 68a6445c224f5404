package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/CleepDevice/cleepapp-localmusic/internal/library"
	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/repositories"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/charmbracelet/log"
)

// LocalBackend implements [Dispatcher] in-process over a music [library.Library] and SQLite repositories.
//
// Playlists only ever reference files present in the library: tracks whose file disappears are pruned,
// and a playlist left without tracks is deleted.
type LocalBackend struct {
	library   *library.Library
	playlists *repositories.PlaylistRepository
	settings  *repositories.SettingsRepository
	logger    *log.Logger

	mu        sync.Mutex
	files     []models.FileEntry
	player    Player
	publisher Publisher
	playing   string
	tracks    int
	opts      models.PlayOptions
}

// NewLocalBackend creates a backend. Call [LocalBackend.Start] before serving commands.
func NewLocalBackend(lib *library.Library, playlists *repositories.PlaylistRepository, settings *repositories.SettingsRepository, logger *log.Logger) *LocalBackend {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LocalBackend{
		library:   lib,
		playlists: playlists,
		settings:  settings,
		logger:    logger,
		files:     []models.FileEntry{},
	}
}

// SetPlayer configures the audio player. Without one, play commands only log a warning.
func (b *LocalBackend) SetPlayer(p Player) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.player = p
}

// SetPublisher configures where configuration snapshots are published after each change.
func (b *LocalBackend) SetPublisher(p Publisher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publisher = p
}

// Start scans the library, prunes playlists and publishes the initial configuration.
func (b *LocalBackend) Start(ctx context.Context) error {
	return b.Refresh(ctx)
}

// Refresh rescans the library and prunes playlists. The library watcher calls it on every change.
func (b *LocalBackend) Refresh(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.rescan(); err != nil {
		return err
	}
	return b.checkPlaylists()
}

// CheckPlaylists removes tracks whose file no longer exists and deletes playlists left empty.
func (b *LocalBackend) CheckPlaylists() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checkPlaylists()
}

// ListFiles returns the catalog from the last scan.
func (b *LocalBackend) ListFiles(ctx context.Context) ([]models.FileEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.files), nil
}

// AddFile stores a new music file.
func (b *LocalBackend) AddFile(ctx context.Context, name string, r io.Reader) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.library.Store(name, r); err != nil {
		return err
	}
	return b.rescan()
}

// DeleteFile removes a music file and prunes it from playlists.
func (b *LocalBackend) DeleteFile(ctx context.Context, filename string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.library.Remove(filename); err != nil {
		return err
	}
	if err := b.rescan(); err != nil {
		return err
	}
	return b.checkPlaylists()
}

// AddPlaylist creates a playlist. The first playlist becomes the default one.
//
// Files missing from the library are left out; when none remain nothing is stored.
func (b *LocalBackend) AddPlaylist(ctx context.Context, name string, files []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	name = shared.CleanName(name)
	if name == "" {
		return fmt.Errorf("%w: playlist name is empty", shared.ErrInvalidInput)
	}
	if len(files) == 0 {
		return shared.ErrEmptyPlaylist
	}
	if _, err := b.playlists.Get(name); err == nil {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistExists, name)
	}

	tracks := b.prune(name, files)
	if len(tracks) == 0 {
		return fmt.Errorf("%w: none of the files exist", shared.ErrEmptyPlaylist)
	}

	if err := b.playlists.Create(name, tracks); err != nil {
		return err
	}
	b.logger.Info("playlist added", "name", name, "tracks", len(tracks))

	count, err := b.playlists.Count()
	if err != nil {
		return err
	}
	if count == 1 {
		if err := b.settings.SetDefaultPlaylist(name); err != nil {
			return err
		}
		b.logger.Info("default playlist set", "name", name)
	}

	return b.publish()
}

// UpdatePlaylist replaces the tracks of name and renames it to newName, keeping its position.
//
// An empty newName keeps the name. The default flag follows a rename.
func (b *LocalBackend) UpdatePlaylist(ctx context.Context, name, newName string, files []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.playlists.Get(name); err != nil {
		return err
	}
	if len(files) == 0 {
		return shared.ErrEmptyPlaylist
	}

	newName = shared.CleanName(newName)
	if newName == "" {
		newName = name
	}

	tracks := b.prune(newName, files)
	if len(tracks) == 0 {
		return fmt.Errorf("%w: none of the files exist", shared.ErrEmptyPlaylist)
	}

	if err := b.playlists.Update(name, newName, tracks); err != nil {
		return err
	}
	b.logger.Info("playlist updated", "name", name, "new_name", newName, "tracks", len(tracks))

	if newName != name {
		def, err := b.settings.DefaultPlaylist()
		if err != nil {
			return err
		}
		if def == name {
			if err := b.settings.SetDefaultPlaylist(newName); err != nil {
				return err
			}
		}
		if b.playing == name {
			b.playing = newName
		}
	}

	return b.publish()
}

// DeletePlaylist removes name, clearing the default flag and stopping playback when they referenced it.
func (b *LocalBackend) DeletePlaylist(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.deletePlaylist(name); err != nil {
		return err
	}
	b.logger.Info("playlist deleted", "name", name)
	return b.publish()
}

// SetDefaultPlaylist flags name for automatic playback.
func (b *LocalBackend) SetDefaultPlaylist(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.playlists.Get(name); err != nil {
		return err
	}
	if err := b.settings.SetDefaultPlaylist(name); err != nil {
		return err
	}
	b.logger.Info("default playlist set", "name", name)
	return b.publish()
}

// PlayPlaylist hands the tracks of name to the player.
func (b *LocalBackend) PlayPlaylist(ctx context.Context, name string, opts models.PlayOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.playlists.Get(name); err != nil {
		return err
	}
	if b.player == nil {
		b.logger.Warn("no audio player configured, playlist not played", "name", name)
		return nil
	}
	return b.play(ctx, name, opts)
}

// StopPlayback stops the player. Nothing playing is not an error.
func (b *LocalBackend) StopPlayback(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.player == nil || !b.player.State().Running {
		b.logger.Debug("no playback to stop")
		return nil
	}
	return b.stop()
}

// StartAlarm resumes a paused playback at the alarm volume, or plays the default playlist when nothing plays.
//
// Without a player or a default playlist the alarm only logs a warning.
func (b *LocalBackend) StartAlarm(ctx context.Context, opts models.PlayOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.player == nil {
		b.logger.Warn("no audio player configured, alarm not played")
		return nil
	}

	if b.player.State().Running {
		b.logger.Info("alarm resumes playback", "name", b.playing, "volume", opts.Volume)
		return b.player.Resume(opts.Volume)
	}

	name, err := b.settings.DefaultPlaylist()
	if err != nil {
		return err
	}
	if name == "" {
		b.logger.Warn("no default playlist, alarm not played")
		return nil
	}

	b.logger.Info("alarm starts default playlist", "name", name, "volume", opts.Volume, "repeat", opts.Repeat, "shuffle", opts.Shuffle)
	return b.play(ctx, name, opts)
}

// StopAlarm pauses playback when snoozed and stops it otherwise.
func (b *LocalBackend) StopAlarm(ctx context.Context, snoozed bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.player == nil || !b.player.State().Running {
		b.logger.Warn("no playback to stop for alarm", "snoozed", snoozed)
		return nil
	}
	if snoozed {
		b.logger.Info("alarm snoozed, playback paused", "name", b.playing)
		return b.player.Pause()
	}
	b.logger.Info("alarm stopped", "name", b.playing)
	return b.stop()
}

// GetPlayback reports the current playback.
func (b *LocalBackend) GetPlayback(ctx context.Context) (models.Playback, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.player == nil {
		return models.Playback{}, nil
	}
	state := b.player.State()
	if !state.Running {
		return models.Playback{}, nil
	}
	return models.Playback{
		Running:      true,
		Paused:       state.Paused,
		PlaylistName: b.playing,
		Tracks:       b.tracks,
		Index:        state.Index,
		Track:        filepath.Base(state.Path),
		Repeat:       b.opts.Repeat,
		Shuffle:      b.opts.Shuffle,
	}, nil
}

// play resolves the tracks of name and starts the player. b.mu must be held.
func (b *LocalBackend) play(ctx context.Context, name string, opts models.PlayOptions) error {
	tracks, err := b.playlists.Get(name)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(tracks))
	for _, track := range tracks {
		path, err := b.library.Path(track)
		if err != nil {
			b.logger.Warn("playlist track has no file, skipped", "playlist", name, "track", track)
			continue
		}
		paths = append(paths, path)
	}
	if len(paths) == 0 {
		return fmt.Errorf("%w: %s has no playable track", shared.ErrEmptyPlaylist, name)
	}

	if err := b.player.Play(ctx, paths, opts); err != nil {
		return err
	}

	b.playing = name
	b.tracks = len(paths)
	b.opts = opts
	b.logger.Info("playing playlist", "name", name, "tracks", len(paths), "repeat", opts.Repeat, "shuffle", opts.Shuffle)
	return nil
}

// stop stops the player and forgets the playing playlist. b.mu must be held.
func (b *LocalBackend) stop() error {
	err := b.player.Stop()
	b.playing = ""
	b.tracks = 0
	b.opts = models.PlayOptions{}
	if err != nil {
		return err
	}
	b.logger.Info("playback stopped")
	return nil
}

// GetConfig returns the current configuration.
func (b *LocalBackend) GetConfig(ctx context.Context) (models.ConfigSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

func (b *LocalBackend) rescan() error {
	files, err := b.library.Scan()
	if err != nil {
		return err
	}
	b.files = files
	return nil
}

// prune returns the files present in the catalog, logging the others.
func (b *LocalBackend) prune(playlist string, files []string) []string {
	kept := make([]string, 0, len(files))
	for _, f := range files {
		if b.hasFile(f) {
			kept = append(kept, f)
			continue
		}
		b.logger.Warn("playlist track does not exist, removed", "playlist", playlist, "track", f)
	}
	return kept
}

func (b *LocalBackend) hasFile(filename string) bool {
	_, found := slices.BinarySearchFunc(b.files, filename, func(f models.FileEntry, name string) int {
		return strings.Compare(f.Filename, name)
	})
	return found
}

func (b *LocalBackend) checkPlaylists() error {
	playlists, err := b.playlists.List()
	if err != nil {
		return err
	}

	for _, p := range playlists {
		kept := b.prune(p.Name, p.Tracks)
		switch {
		case len(kept) == len(p.Tracks):
			continue
		case len(kept) == 0:
			b.logger.Warn("playlist has no track left, deleted", "playlist", p.Name)
			if err := b.deletePlaylist(p.Name); err != nil {
				return err
			}
		default:
			if err := b.playlists.Update(p.Name, "", kept); err != nil {
				return err
			}
		}
	}

	return b.publish()
}

func (b *LocalBackend) deletePlaylist(name string) error {
	if err := b.playlists.Delete(name); err != nil {
		return err
	}

	def, err := b.settings.DefaultPlaylist()
	if err != nil {
		return err
	}
	if def == name {
		if err := b.settings.SetDefaultPlaylist(""); err != nil {
			return err
		}
	}

	if b.playing == name && b.player != nil {
		if err := b.stop(); err != nil {
			b.logger.Warn("failed to stop player", "error", err)
		}
	}
	return nil
}

func (b *LocalBackend) snapshot() (models.ConfigSnapshot, error) {
	playlists, err := b.playlists.List()
	if err != nil {
		return models.ConfigSnapshot{}, err
	}
	def, err := b.settings.DefaultPlaylist()
	if err != nil {
		return models.ConfigSnapshot{}, err
	}
	return models.ConfigSnapshot{Playlists: playlists, Default: def}, nil
}

// publish sends the current configuration to the publisher, if any.
func (b *LocalBackend) publish() error {
	if b.publisher == nil {
		return nil
	}
	snapshot, err := b.snapshot()
	if err != nil {
		return err
	}
	b.publisher.Publish(snapshot)
	return nil
}
