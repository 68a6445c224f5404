package repositories

import (
	"context"
	"database/sql"
	"path/filepath"
	"slices"
	"testing"

	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "playlists")
		if err != nil {
			t.Fatalf("failed to get sequence: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}
}

func TestPlaylistRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		if err := repo.Create("Rock", []string{"b.mp3", "a.mp3"}); err != nil {
			t.Fatalf("failed to create playlist: %v", err)
		}

		tracks, err := repo.Get("Rock")
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if want := []string{"b.mp3", "a.mp3"}; !slices.Equal(tracks, want) {
			t.Errorf("expected tracks %v, got %v", want, tracks)
		}
	})

	t.Run("List Keeps Creation Order", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		for _, name := range []string{"Zulu", "Alpha", "Mike"} {
			if err := repo.Create(name, []string{name + ".mp3"}); err != nil {
				t.Fatalf("failed to create playlist %s: %v", name, err)
			}
		}

		playlists, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if want := []string{"Zulu", "Alpha", "Mike"}; !slices.Equal(playlists.Names(), want) {
			t.Errorf("expected order %v, got %v", want, playlists.Names())
		}
		if tracks, _ := playlists.Get("Alpha"); !slices.Equal(tracks, []string{"Alpha.mp3"}) {
			t.Errorf("unexpected Alpha tracks %v", tracks)
		}
	})

	t.Run("List Empty", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		playlists, err := NewPlaylistRepository(db).List()
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if playlists == nil || len(playlists) != 0 {
			t.Errorf("expected empty non-nil mapping, got %#v", playlists)
		}
	})

	t.Run("Update Rename Keeps Position", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		_ = repo.Create("First", []string{"a.mp3"})
		_ = repo.Create("Old", []string{"a.mp3", "b.mp3"})
		_ = repo.Create("Last", []string{"c.mp3"})

		if err := repo.Update("Old", "New", []string{"b.mp3", "a.mp3", "c.mp3"}); err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}

		playlists, _ := repo.List()
		if want := []string{"First", "New", "Last"}; !slices.Equal(playlists.Names(), want) {
			t.Errorf("expected order %v, got %v", want, playlists.Names())
		}
		if tracks, _ := playlists.Get("New"); !slices.Equal(tracks, []string{"b.mp3", "a.mp3", "c.mp3"}) {
			t.Errorf("unexpected tracks %v", tracks)
		}
	})

	t.Run("Update Empty Name Keeps Name", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		_ = repo.Create("Mix", []string{"a.mp3"})

		if err := repo.Update("Mix", "", []string{"b.mp3"}); err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}

		tracks, err := repo.Get("Mix")
		if err != nil {
			t.Fatalf("expected playlist to keep its name: %v", err)
		}
		if !slices.Equal(tracks, []string{"b.mp3"}) {
			t.Errorf("unexpected tracks %v", tracks)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		_ = repo.Create("Mix", []string{"a.mp3", "b.mp3"})

		if err := repo.Delete("Mix"); err != nil {
			t.Fatalf("failed to delete playlist: %v", err)
		}

		if n, _ := repo.Count(); n != 0 {
			t.Errorf("expected no playlists, got %d", n)
		}

		var orphans int
		if err := db.QueryRow("SELECT COUNT(*) FROM playlist_tracks").Scan(&orphans); err != nil {
			t.Fatalf("failed to count tracks: %v", err)
		}
		if orphans != 0 {
			t.Errorf("expected tracks to be deleted with their playlist, got %d", orphans)
		}
	})
}

func TestDeleteOverConnectionPool(t *testing.T) {
	db, err := shared.NewDatabase(filepath.Join(t.TempDir(), "pool.db"))
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, 2, 2)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()

	// hold one connection so the statements below use another one
	held, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("failed to get connection: %v", err)
	}
	defer held.Close()

	var enabled int
	if err := held.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		t.Fatalf("failed to read pragma: %v", err)
	}
	if enabled != 1 {
		t.Errorf("expected foreign keys on held connection, got %d", enabled)
	}

	repo := NewPlaylistRepository(db)
	if err := repo.Create("Mix", []string{"a.mp3", "b.mp3"}); err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}
	if err := repo.Delete("Mix"); err != nil {
		t.Fatalf("failed to delete playlist: %v", err)
	}

	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
		t.Fatalf("failed to read pragma: %v", err)
	}
	if enabled != 1 {
		t.Errorf("expected foreign keys on second connection, got %d", enabled)
	}

	var orphans int
	if err := held.QueryRowContext(ctx, "SELECT COUNT(*) FROM playlist_tracks").Scan(&orphans); err != nil {
		t.Fatalf("failed to count tracks: %v", err)
	}
	if orphans != 0 {
		t.Errorf("expected no orphaned tracks, got %d", orphans)
	}
}

func TestSettingsRepository(t *testing.T) {
	t.Run("Get Missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		value, ok, err := NewSettingsRepository(db).Get("missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok || value != "" {
			t.Errorf("expected unset key, got %q ok=%v", value, ok)
		}
	})

	t.Run("Set And Overwrite", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSettingsRepository(db)
		if err := repo.Set("volume", "50"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := repo.Set("volume", "80"); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}

		value, ok, err := repo.Get("volume")
		if err != nil || !ok || value != "80" {
			t.Errorf("expected 80, got %q ok=%v err=%v", value, ok, err)
		}
	})

	t.Run("Default Playlist", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSettingsRepository(db)
		if name, _ := repo.DefaultPlaylist(); name != "" {
			t.Errorf("expected no default, got %q", name)
		}

		if err := repo.SetDefaultPlaylist("Rock"); err != nil {
			t.Fatalf("failed to set default: %v", err)
		}
		if name, _ := repo.DefaultPlaylist(); name != "Rock" {
			t.Errorf("expected Rock, got %q", name)
		}

		if err := repo.SetDefaultPlaylist(""); err != nil {
			t.Fatalf("failed to clear default: %v", err)
		}
		if _, ok, _ := repo.Get(DefaultPlaylistKey); ok {
			t.Error("expected default to be cleared")
		}
	})
}
