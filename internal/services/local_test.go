package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/CleepDevice/cleepapp-localmusic/internal/library"
	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/repositories"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
)

type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []models.ConfigSnapshot
}

func (p *recordingPublisher) Publish(s models.ConfigSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, s)
}

func (p *recordingPublisher) last() models.ConfigSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshots) == 0 {
		return models.ConfigSnapshot{}
	}
	return p.snapshots[len(p.snapshots)-1]
}

type fakePlayer struct {
	played  [][]string
	opts    []models.PlayOptions
	stopped int
	resumed []int
	running bool
	paused  bool
	err     error
}

func (p *fakePlayer) Play(ctx context.Context, paths []string, opts models.PlayOptions) error {
	if p.err != nil {
		return p.err
	}
	p.played = append(p.played, paths)
	p.opts = append(p.opts, opts)
	p.running, p.paused = true, false
	return nil
}

func (p *fakePlayer) Pause() error {
	p.paused = p.running
	return nil
}

func (p *fakePlayer) Resume(volume int) error {
	p.resumed = append(p.resumed, volume)
	p.paused = false
	return nil
}

func (p *fakePlayer) Stop() error {
	p.stopped++
	p.running, p.paused = false, false
	return nil
}

func (p *fakePlayer) State() PlayerState {
	if !p.running {
		return PlayerState{}
	}
	return PlayerState{Running: true, Paused: p.paused, Index: 1, Path: "/music/a.mp3"}
}

type backendFixture struct {
	backend   *LocalBackend
	library   *library.Library
	publisher *recordingPublisher
}

func newTestBackend(t *testing.T, files ...string) backendFixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	dir := t.TempDir()
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("audio"), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", f, err)
		}
	}

	lib := library.New(dir, []string{"mp3", "flac", "aac", "ogg"}, testLogger())
	backend := NewLocalBackend(lib, repositories.NewPlaylistRepository(db), repositories.NewSettingsRepository(db), testLogger())
	publisher := &recordingPublisher{}
	backend.SetPublisher(publisher)

	if err := backend.Start(context.Background()); err != nil {
		t.Fatalf("failed to start backend: %v", err)
	}
	return backendFixture{backend: backend, library: lib, publisher: publisher}
}

func TestLocalBackendFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("ListFiles", func(t *testing.T) {
		f := newTestBackend(t, "b.mp3", "a.ogg", "cover.jpg")

		files, err := f.backend.ListFiles(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := []string{"a.ogg", "b.mp3"}; !slices.Equal(models.Filenames(files), want) {
			t.Errorf("expected %v, got %v", want, models.Filenames(files))
		}
	})

	t.Run("AddFile", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3")

		if err := f.backend.AddFile(ctx, "b.flac", strings.NewReader("audio")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		files, _ := f.backend.ListFiles(ctx)
		if want := []string{"a.mp3", "b.flac"}; !slices.Equal(models.Filenames(files), want) {
			t.Errorf("expected %v, got %v", want, models.Filenames(files))
		}

		if err := f.backend.AddFile(ctx, "a.mp3", strings.NewReader("audio")); !errors.Is(err, shared.ErrFileExists) {
			t.Errorf("expected ErrFileExists, got %v", err)
		}
		if err := f.backend.AddFile(ctx, "a.wav", strings.NewReader("audio")); !errors.Is(err, shared.ErrInvalidExtension) {
			t.Errorf("expected ErrInvalidExtension, got %v", err)
		}
	})

	t.Run("DeleteFile Prunes Playlists", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3", "b.mp3", "c.mp3")
		_ = f.backend.AddPlaylist(ctx, "Both", []string{"a.mp3", "b.mp3"})
		_ = f.backend.AddPlaylist(ctx, "Only", []string{"a.mp3"})

		if err := f.backend.DeleteFile(ctx, "a.mp3"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		config, _ := f.backend.GetConfig(ctx)
		if want := []string{"Both"}; !slices.Equal(config.Playlists.Names(), want) {
			t.Errorf("expected emptied playlist to be deleted, got %v", config.Playlists.Names())
		}
		if tracks, _ := config.Playlists.Get("Both"); !slices.Equal(tracks, []string{"b.mp3"}) {
			t.Errorf("expected pruned tracks [b.mp3], got %v", tracks)
		}
		if config.Default != "Both" {
			t.Errorf("expected first playlist to stay default, got %q", config.Default)
		}
		if !f.publisher.last().Equal(config) {
			t.Error("expected pruned configuration to be published")
		}

		if err := f.backend.DeleteFile(ctx, "missing.mp3"); !errors.Is(err, shared.ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound, got %v", err)
		}
	})

	t.Run("Refresh After External Removal", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3", "b.mp3")
		_ = f.backend.AddPlaylist(ctx, "Mix", []string{"b.mp3", "a.mp3"})

		if err := os.Remove(filepath.Join(f.library.Dir(), "b.mp3")); err != nil {
			t.Fatalf("failed to remove file: %v", err)
		}
		if err := f.backend.Refresh(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		config, _ := f.backend.GetConfig(ctx)
		if tracks, _ := config.Playlists.Get("Mix"); !slices.Equal(tracks, []string{"a.mp3"}) {
			t.Errorf("expected [a.mp3], got %v", tracks)
		}
	})
}

func TestLocalBackendPlaylists(t *testing.T) {
	ctx := context.Background()

	t.Run("First Playlist Becomes Default", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3", "b.mp3")

		if err := f.backend.AddPlaylist(ctx, "One", []string{"a.mp3"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := f.backend.AddPlaylist(ctx, "Two", []string{"b.mp3"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		config, _ := f.backend.GetConfig(ctx)
		if config.Default != "One" {
			t.Errorf("expected default One, got %q", config.Default)
		}
		if want := []string{"One", "Two"}; !slices.Equal(config.Playlists.Names(), want) {
			t.Errorf("expected %v, got %v", want, config.Playlists.Names())
		}
	})

	t.Run("Add Keeps Order And Prunes", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3", "b.mp3")

		if err := f.backend.AddPlaylist(ctx, "  Road   trip ", []string{"b.mp3", "gone.mp3", "a.mp3"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		config, _ := f.backend.GetConfig(ctx)
		tracks, ok := config.Playlists.Get("Road trip")
		if !ok || !slices.Equal(tracks, []string{"b.mp3", "a.mp3"}) {
			t.Errorf("expected cleaned name with [b.mp3 a.mp3], got %v ok=%v", tracks, ok)
		}
	})

	t.Run("Add Errors", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3")
		_ = f.backend.AddPlaylist(ctx, "Mix", []string{"a.mp3"})

		tests := []struct {
			name     string
			playlist string
			files    []string
			want     error
		}{
			{name: "empty files", playlist: "New", files: nil, want: shared.ErrEmptyPlaylist},
			{name: "all missing", playlist: "New", files: []string{"gone.mp3"}, want: shared.ErrEmptyPlaylist},
			{name: "duplicate", playlist: "Mix", files: []string{"a.mp3"}, want: shared.ErrPlaylistExists},
			{name: "blank name", playlist: "  ", files: []string{"a.mp3"}, want: shared.ErrInvalidInput},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := f.backend.AddPlaylist(ctx, tt.playlist, tt.files); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}

		config, _ := f.backend.GetConfig(ctx)
		if len(config.Playlists) != 1 {
			t.Errorf("failed adds must not store anything, got %v", config.Playlists.Names())
		}
	})

	t.Run("Update Rename Keeps Position And Default", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3", "b.mp3")
		_ = f.backend.AddPlaylist(ctx, "Old", []string{"a.mp3", "b.mp3"})
		_ = f.backend.AddPlaylist(ctx, "Other", []string{"a.mp3"})

		if err := f.backend.UpdatePlaylist(ctx, "Old", "New", []string{"b.mp3", "a.mp3"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		config, _ := f.backend.GetConfig(ctx)
		if want := []string{"New", "Other"}; !slices.Equal(config.Playlists.Names(), want) {
			t.Errorf("expected %v, got %v", want, config.Playlists.Names())
		}
		if tracks, _ := config.Playlists.Get("New"); !slices.Equal(tracks, []string{"b.mp3", "a.mp3"}) {
			t.Errorf("expected [b.mp3 a.mp3], got %v", tracks)
		}
		if config.Default != "New" {
			t.Errorf("expected default to follow rename, got %q", config.Default)
		}
	})

	t.Run("Update Empty Name Keeps Name", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3", "b.mp3")
		_ = f.backend.AddPlaylist(ctx, "Mix", []string{"a.mp3"})

		if err := f.backend.UpdatePlaylist(ctx, "Mix", "", []string{"b.mp3"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		config, _ := f.backend.GetConfig(ctx)
		if tracks, ok := config.Playlists.Get("Mix"); !ok || !slices.Equal(tracks, []string{"b.mp3"}) {
			t.Errorf("expected Mix with [b.mp3], got %v ok=%v", tracks, ok)
		}
	})

	t.Run("Update Errors", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3")
		_ = f.backend.AddPlaylist(ctx, "Mix", []string{"a.mp3"})
		_ = f.backend.AddPlaylist(ctx, "Taken", []string{"a.mp3"})

		if err := f.backend.UpdatePlaylist(ctx, "Missing", "", []string{"a.mp3"}); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if err := f.backend.UpdatePlaylist(ctx, "Mix", "", nil); !errors.Is(err, shared.ErrEmptyPlaylist) {
			t.Errorf("expected ErrEmptyPlaylist, got %v", err)
		}
		if err := f.backend.UpdatePlaylist(ctx, "Mix", "Taken", []string{"a.mp3"}); !errors.Is(err, shared.ErrPlaylistExists) {
			t.Errorf("expected ErrPlaylistExists, got %v", err)
		}
	})

	t.Run("Delete Clears Default", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3")
		_ = f.backend.AddPlaylist(ctx, "Mix", []string{"a.mp3"})

		if err := f.backend.DeletePlaylist(ctx, "Mix"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		config, _ := f.backend.GetConfig(ctx)
		if len(config.Playlists) != 0 || config.Default != "" {
			t.Errorf("expected empty configuration, got %+v", config)
		}
		if err := f.backend.DeletePlaylist(ctx, "Mix"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("SetDefaultPlaylist", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3")
		_ = f.backend.AddPlaylist(ctx, "One", []string{"a.mp3"})
		_ = f.backend.AddPlaylist(ctx, "Two", []string{"a.mp3"})

		if err := f.backend.SetDefaultPlaylist(ctx, "Two"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.publisher.last().Default != "Two" {
			t.Errorf("expected published default Two, got %q", f.publisher.last().Default)
		}
		if err := f.backend.SetDefaultPlaylist(ctx, "Missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}

func TestLocalBackendPlayback(t *testing.T) {
	ctx := context.Background()

	t.Run("Without Player", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3")
		_ = f.backend.AddPlaylist(ctx, "Mix", []string{"a.mp3"})

		if err := f.backend.PlayPlaylist(ctx, "Mix", models.PlayOptions{}); err != nil {
			t.Errorf("expected warning only, got %v", err)
		}
		if playback, _ := f.backend.GetPlayback(ctx); playback.Running {
			t.Error("expected no playback without player")
		}
	})

	t.Run("With Player", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3", "b.mp3")
		player := &fakePlayer{}
		f.backend.SetPlayer(player)
		_ = f.backend.AddPlaylist(ctx, "Mix", []string{"b.mp3", "a.mp3"})

		if err := f.backend.PlayPlaylist(ctx, "Mix", models.PlayOptions{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{filepath.Join(f.library.Dir(), "b.mp3"), filepath.Join(f.library.Dir(), "a.mp3")}
		if len(player.played) != 1 || !slices.Equal(player.played[0], want) {
			t.Errorf("expected paths %v, got %v", want, player.played)
		}

		playback, _ := f.backend.GetPlayback(ctx)
		if !playback.Running || playback.PlaylistName != "Mix" || playback.Tracks != 2 || playback.Index != 1 || playback.Track != "a.mp3" {
			t.Errorf("unexpected playback %+v", playback)
		}

		if err := f.backend.DeletePlaylist(ctx, "Mix"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if player.stopped != 1 {
			t.Error("deleting the playing playlist should stop the player")
		}
	})

	t.Run("Errors", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3")
		f.backend.SetPlayer(&fakePlayer{err: errors.New("no audio device")})
		_ = f.backend.AddPlaylist(ctx, "Mix", []string{"a.mp3"})

		if err := f.backend.PlayPlaylist(ctx, "Missing", models.PlayOptions{}); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if err := f.backend.PlayPlaylist(ctx, "Mix", models.PlayOptions{}); err == nil {
			t.Error("expected player error")
		}
	})
}

func TestLocalBackendStopAndAlarm(t *testing.T) {
	ctx := context.Background()

	t.Run("Play Options", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3")
		player := &fakePlayer{}
		f.backend.SetPlayer(player)
		_ = f.backend.AddPlaylist(ctx, "Mix", []string{"a.mp3"})

		opts := models.PlayOptions{Repeat: true, Shuffle: true, Volume: 50}
		if err := f.backend.PlayPlaylist(ctx, "Mix", opts); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(player.opts) != 1 || player.opts[0] != opts {
			t.Errorf("expected options %+v, got %+v", opts, player.opts)
		}
		if playback, _ := f.backend.GetPlayback(ctx); !playback.Repeat || !playback.Shuffle {
			t.Errorf("expected repeat and shuffle in playback, got %+v", playback)
		}
	})

	t.Run("Stop Playback", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3")
		player := &fakePlayer{}
		f.backend.SetPlayer(player)
		_ = f.backend.AddPlaylist(ctx, "Mix", []string{"a.mp3"})

		if err := f.backend.StopPlayback(ctx); err != nil || player.stopped != 0 {
			t.Errorf("stopping without playback should be a no-op, err=%v stopped=%d", err, player.stopped)
		}

		_ = f.backend.PlayPlaylist(ctx, "Mix", models.PlayOptions{})
		if err := f.backend.StopPlayback(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if player.stopped != 1 {
			t.Errorf("expected the player to be stopped once, got %d", player.stopped)
		}
		if playback, _ := f.backend.GetPlayback(ctx); playback.Running || playback.PlaylistName != "" {
			t.Errorf("expected no playback, got %+v", playback)
		}
	})

	t.Run("Alarm Plays Default Playlist", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3", "b.mp3")
		player := &fakePlayer{}
		f.backend.SetPlayer(player)
		_ = f.backend.AddPlaylist(ctx, "First", []string{"a.mp3"})
		_ = f.backend.AddPlaylist(ctx, "Wake", []string{"b.mp3", "a.mp3"})
		_ = f.backend.SetDefaultPlaylist(ctx, "Wake")

		opts := models.PlayOptions{Repeat: true, Volume: 30}
		if err := f.backend.StartAlarm(ctx, opts); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(player.played) != 1 || len(player.played[0]) != 2 || player.opts[0] != opts {
			t.Fatalf("expected Wake played with %+v, got %v %+v", opts, player.played, player.opts)
		}
		if playback, _ := f.backend.GetPlayback(ctx); playback.PlaylistName != "Wake" {
			t.Errorf("expected Wake playing, got %+v", playback)
		}
	})

	t.Run("Snooze Then Alarm Resumes", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3")
		player := &fakePlayer{}
		f.backend.SetPlayer(player)
		_ = f.backend.AddPlaylist(ctx, "Wake", []string{"a.mp3"})
		_ = f.backend.StartAlarm(ctx, models.PlayOptions{Volume: 30})

		if err := f.backend.StopAlarm(ctx, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if playback, _ := f.backend.GetPlayback(ctx); !playback.Running || !playback.Paused {
			t.Fatalf("expected a paused playback, got %+v", playback)
		}

		if err := f.backend.StartAlarm(ctx, models.PlayOptions{Volume: 60}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(player.played) != 1 || !slices.Equal(player.resumed, []int{60}) {
			t.Errorf("expected a resume at volume 60 without a new playback, played=%d resumed=%v", len(player.played), player.resumed)
		}

		if err := f.backend.StopAlarm(ctx, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if player.stopped != 1 || player.running {
			t.Error("expected the alarm stop to stop the player")
		}
	})

	t.Run("Alarm Without Default Or Player", func(t *testing.T) {
		f := newTestBackend(t, "a.mp3")
		if err := f.backend.StartAlarm(ctx, models.PlayOptions{}); err != nil {
			t.Errorf("expected warning only without player, got %v", err)
		}
		if err := f.backend.StopAlarm(ctx, false); err != nil {
			t.Errorf("expected warning only without player, got %v", err)
		}

		player := &fakePlayer{}
		f.backend.SetPlayer(player)
		if err := f.backend.StartAlarm(ctx, models.PlayOptions{}); err != nil {
			t.Errorf("expected warning only without default playlist, got %v", err)
		}
		if len(player.played) != 0 {
			t.Error("expected nothing played without default playlist")
		}
	})
}
