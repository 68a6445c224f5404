package playlist

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
)

func TestCatalog(t *testing.T) {
	t.Run("Refresh Sorts", func(t *testing.T) {
		lister := &mockLister{files: files("c.mp3", "a.mp3", "b.mp3")}
		catalog := NewCatalog(lister, testLogger())

		got, err := catalog.Refresh(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"a.mp3", "b.mp3", "c.mp3"}
		if !slices.Equal(models.Filenames(got), want) {
			t.Errorf("expected %v, got %v", want, models.Filenames(got))
		}
		if lister.files[0].Filename != "c.mp3" {
			t.Error("refresh should not reorder the lister's slice")
		}
	})

	t.Run("Refresh Replaces Wholesale", func(t *testing.T) {
		lister := &mockLister{files: files("a.mp3", "b.mp3")}
		catalog := NewCatalog(lister, testLogger())
		if _, err := catalog.Refresh(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lister.files = files("c.mp3", "b.mp3")
		if _, err := catalog.Refresh(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if want := []string{"b.mp3", "c.mp3"}; !slices.Equal(models.Filenames(catalog.Files()), want) {
			t.Errorf("expected %v, got %v", want, models.Filenames(catalog.Files()))
		}
		if _, ok := catalog.Lookup("a.mp3"); ok {
			t.Error("removed file should disappear from the mirror")
		}
	})

	t.Run("Refresh Failure Keeps Mirror", func(t *testing.T) {
		lister := &mockLister{files: files("a.mp3")}
		catalog := NewCatalog(lister, testLogger())
		if _, err := catalog.Refresh(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lister.err = errors.New("connection refused")
		_, err := catalog.Refresh(context.Background())
		if !errors.Is(err, shared.ErrRemoteFetch) {
			t.Fatalf("expected ErrRemoteFetch, got %v", err)
		}
		if catalog.Len() != 1 {
			t.Errorf("expected previous mirror to be kept, got %d files", catalog.Len())
		}
	})

	t.Run("Files Returns Copy", func(t *testing.T) {
		catalog := NewCatalog(nil, testLogger())
		catalog.Replace(files("a.mp3"))

		got := catalog.Files()
		got[0].Filename = "changed"

		if f, ok := catalog.Lookup("a.mp3"); !ok || f.Filename != "a.mp3" {
			t.Error("mutating Files() result should not affect the mirror")
		}
	})

	t.Run("No Lister", func(t *testing.T) {
		catalog := NewCatalog(nil, testLogger())
		if _, err := catalog.Fetch(context.Background()); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestBuildViewModel(t *testing.T) {
	t.Run("Default Marking", func(t *testing.T) {
		snapshot := models.ConfigSnapshot{
			Playlists: models.Playlists{
				{Name: "A", Tracks: []string{"a.mp3"}},
				{Name: "B", Tracks: []string{"b.mp3", "c.mp3"}},
			},
			Default: "B",
		}

		view := BuildViewModel(snapshot)
		if len(view) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(view))
		}

		defaults := 0
		for _, entry := range view {
			if entry.IsDefault {
				defaults++
				if entry.Name != "B" {
					t.Errorf("expected B to be default, got %s", entry.Name)
				}
			}
		}
		if defaults != 1 {
			t.Errorf("expected exactly one default, got %d", defaults)
		}
		if view[1].TrackCount() != 2 {
			t.Errorf("expected B to have 2 tracks, got %d", view[1].TrackCount())
		}
	})

	t.Run("Keeps Snapshot Order", func(t *testing.T) {
		snapshot := models.ConfigSnapshot{Playlists: models.Playlists{
			{Name: "zulu", Tracks: []string{"1"}},
			{Name: "alpha", Tracks: []string{"2"}},
		}}
		view := BuildViewModel(snapshot)
		if view[0].Name != "zulu" || view[1].Name != "alpha" {
			t.Errorf("builder must not re-sort, got %s, %s", view[0].Name, view[1].Name)
		}
	})

	t.Run("Empty And Unknown Default", func(t *testing.T) {
		if view := BuildViewModel(models.ConfigSnapshot{Playlists: models.Playlists{}}); len(view) != 0 {
			t.Errorf("expected empty view, got %v", view)
		}

		view := BuildViewModel(models.ConfigSnapshot{
			Playlists: models.Playlists{{Name: "A", Tracks: []string{"a"}}},
			Default:   "missing",
		})
		if view[0].IsDefault {
			t.Error("unknown default should mark nothing")
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		snapshot := models.ConfigSnapshot{Playlists: models.Playlists{{Name: "A", Tracks: []string{"x", "y"}}}, Default: "A"}
		first, second := BuildViewModel(snapshot), BuildViewModel(snapshot)
		if first[0].Name != second[0].Name || !slices.Equal(first[0].Tracks, second[0].Tracks) || first[0].IsDefault != second[0].IsDefault {
			t.Error("same input should give the same view model")
		}
		first[0].Tracks[0] = "changed"
		if snapshot.Playlists[0].Tracks[0] != "x" {
			t.Error("view model should not alias snapshot tracks")
		}
	})
}
