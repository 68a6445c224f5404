package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CleepDevice/cleepapp-localmusic/internal/formatter"
	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	tu "github.com/CleepDevice/cleepapp-localmusic/internal/testing"
)

func TestBulkExport_SuccessfulExport(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		names     []string
		wantFiles []string
	}{
		{
			name:      "all playlists json",
			format:    "json",
			wantFiles: []string{"morning.json", "evening.json"},
		},
		{
			name:      "selected playlist m3u",
			format:    "m3u",
			names:     []string{"Evening"},
			wantFiles: []string{"evening.m3u"},
		},
		{
			name:      "default format",
			format:    "",
			names:     []string{"Morning"},
			wantFiles: []string{"morning.json"},
		},
		{
			name:      "markdown",
			format:    "md",
			wantFiles: []string{"morning.md", "evening.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			engine := NewLibraryEngine(testDispatcher(), testLogger())

			result, err := engine.BulkExport(context.Background(), nil, tt.names, BulkExportOpts{
				Format:    tt.format,
				OutputDir: dir,
			})
			if err != nil {
				t.Fatalf("BulkExport failed: %v", err)
			}

			if result.SuccessfulExports != len(tt.wantFiles) || result.FailedExports != 0 {
				t.Errorf("unexpected counts %+v", result)
			}
			for _, f := range tt.wantFiles {
				tu.AssertFileExists(t, filepath.Join(dir, f))
			}
			if result.ManifestPath != filepath.Join(dir, "export_manifest.json") {
				t.Errorf("unexpected manifest path %s", result.ManifestPath)
			}
			tu.AssertFileExists(t, result.ManifestPath)
		})
	}
}

func TestBulkExport_Manifest(t *testing.T) {
	dir := t.TempDir()
	engine := NewLibraryEngine(testDispatcher(), testLogger())

	result, err := engine.BulkExport(context.Background(), nil, []string{"Morning", "Missing"}, BulkExportOpts{
		Format:    formatter.FormatCSV,
		OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("BulkExport failed: %v", err)
	}

	var manifest BulkExportResult
	if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
		t.Fatalf("invalid manifest: %v", err)
	}

	if manifest.Format != formatter.FormatCSV || manifest.DefaultPlaylist != "Morning" {
		t.Errorf("unexpected manifest header %+v", manifest)
	}
	if manifest.TotalPlaylists != 2 || manifest.SuccessfulExports != 1 || manifest.FailedExports != 1 {
		t.Errorf("unexpected manifest counts %+v", manifest)
	}

	for _, res := range manifest.Results {
		switch res.PlaylistName {
		case "Morning":
			if !res.Success || res.Tracks != 2 {
				t.Errorf("unexpected Morning result %+v", res)
			}
			csv := tu.MustReadFile(t, res.File)
			if !strings.Contains(csv, "1,b.mp3") || !strings.Contains(csv, "2,a.mp3") {
				t.Errorf("expected playlist order in CSV, got:\n%s", csv)
			}
		case "Missing":
			if res.Success || !strings.Contains(res.Error, shared.ErrPlaylistNotFound.Error()) {
				t.Errorf("unexpected Missing result %+v", res)
			}
		default:
			t.Errorf("unexpected result %+v", res)
		}
	}
}

func TestBulkExport_SlugCollisions(t *testing.T) {
	m := tu.NewMockDispatcher("a.mp3")
	m.Config = models.ConfigSnapshot{Playlists: models.Playlists{
		{Name: "Road Trip", Tracks: []string{"a.mp3"}},
		{Name: "road trip", Tracks: []string{"a.mp3"}},
	}}
	dir := t.TempDir()
	engine := NewLibraryEngine(m, testLogger())

	result, err := engine.BulkExport(context.Background(), nil, nil, BulkExportOpts{Format: "txt", OutputDir: dir})
	if err != nil {
		t.Fatalf("BulkExport failed: %v", err)
	}
	if result.SuccessfulExports != 2 {
		t.Fatalf("expected 2 exports, got %+v", result)
	}
	tu.AssertFileExists(t, filepath.Join(dir, "road_trip.txt"))
	tu.AssertFileExists(t, filepath.Join(dir, "road_trip_2.txt"))
}

func TestBulkExport_Errors(t *testing.T) {
	t.Run("InvalidFormat", func(t *testing.T) {
		engine := NewLibraryEngine(testDispatcher(), testLogger())
		_, err := engine.BulkExport(context.Background(), nil, nil, BulkExportOpts{Format: "xml", OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("ConfigFetchFails", func(t *testing.T) {
		m := testDispatcher()
		m.Err = shared.ErrServiceUnavailable
		engine := NewLibraryEngine(m, testLogger())
		_, err := engine.BulkExport(context.Background(), nil, nil, BulkExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrRemoteFetch) {
			t.Errorf("expected ErrRemoteFetch, got %v", err)
		}
	})

	t.Run("InvalidOutputDirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, nil, 0644); err != nil {
			t.Fatal(err)
		}
		engine := NewLibraryEngine(testDispatcher(), testLogger())
		if _, err := engine.BulkExport(context.Background(), nil, nil, BulkExportOpts{OutputDir: filepath.Join(file, "out")}); err == nil {
			t.Error("expected error for output directory under a file")
		}
	})

	t.Run("ContextCancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		engine := NewLibraryEngine(testDispatcher(), testLogger())
		_, err := engine.BulkExport(ctx, nil, nil, BulkExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("NoDispatcher", func(t *testing.T) {
		engine := NewLibraryEngine(nil, testLogger())
		if _, err := engine.BulkExport(context.Background(), nil, nil, BulkExportOpts{}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestBulkExport_ProgressUpdates(t *testing.T) {
	engine := NewLibraryEngine(testDispatcher(), testLogger())
	progress := make(chan ProgressUpdate, 20)

	if _, err := engine.BulkExport(context.Background(), progress, nil, BulkExportOpts{OutputDir: t.TempDir()}); err != nil {
		t.Fatalf("BulkExport failed: %v", err)
	}
	close(progress)

	phases := map[Phase]int{}
	for u := range progress {
		phases[u.Phase]++
	}
	if phases[FetchConfig] != 1 || phases[FetchCatalog] != 1 || phases[ExportPlaylist] != 2 || phases[WriteManifest] != 1 {
		t.Errorf("unexpected progress phases %v", phases)
	}
}
