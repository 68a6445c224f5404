package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/CleepDevice/cleepapp-localmusic/internal/formatter"
	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/playlist"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string // Export format: json, csv, markdown, txt, m3u
	OutputDir  string // Base output directory (default: localmusic_export_{epoch})
	NumWorkers int    // Concurrent workers (default: 5)
}

// PlaylistExportJob is one playlist handed to an export worker.
type PlaylistExportJob struct {
	Export formatter.PlaylistExport
	Base   string
}

// PlaylistExportResult is the outcome of one playlist export.
type PlaylistExportResult struct {
	PlaylistName string `json:"playlist_name"`
	Success      bool   `json:"success"`
	File         string `json:"file,omitempty"`
	Tracks       int    `json:"tracks"`
	Error        string `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export and is written as its manifest.
type BulkExportResult struct {
	Format            string                 `json:"format"`
	ExportedAt        time.Time              `json:"exported_at"`
	DefaultPlaylist   string                 `json:"default_playlist,omitempty"`
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"-"`
	Results           []PlaylistExportResult `json:"results"`
}

// BulkExport writes playlists to opts.OutputDir, one file per playlist, plus export_manifest.json.
//
// names selects playlists by name; when empty every playlist is exported in configuration order.
// Unknown names are reported as failed exports.
func (e *LibraryEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	names []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if e.dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher not initialized", shared.ErrServiceUnavailable)
	}

	format, err := formatter.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("localmusic_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}

	e.sendProgress(prog, fetchingConfigUpdate(1, 2))
	snapshot, err := e.dispatcher.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRemoteFetch, err)
	}

	e.sendProgress(prog, fetchingCatalogUpdate(2, 2))
	catalog, err := e.dispatcher.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRemoteFetch, err)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	entries := playlist.BuildViewModel(snapshot)
	if len(names) == 0 {
		for _, entry := range entries {
			names = append(names, entry.Name)
		}
	}

	result := &BulkExportResult{
		Format:          format,
		ExportedAt:      time.Now().UTC(),
		DefaultPlaylist: snapshot.Default,
		TotalPlaylists:  len(names),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(names)),
	}

	jobs := make(chan PlaylistExportJob, len(names))
	results := make(chan PlaylistExportResult, len(names))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, format, opts.OutputDir)
	}

	go func() {
		defer close(jobs)
		used := map[string]int{}
		for _, name := range names {
			entry, ok := lookup(entries, name)
			if !ok {
				results <- PlaylistExportResult{
					PlaylistName: name,
					Error:        fmt.Sprintf("%v: %q", shared.ErrPlaylistNotFound, name),
				}
				continue
			}

			select {
			case <-ctx.Done():
				return
			case jobs <- PlaylistExportJob{
				Export: formatter.NewPlaylistExport(entry, catalog),
				Base:   uniqueBase(used, formatter.Slug(name)),
			}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(names), res.PlaylistName, res.File))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(names), res.PlaylistName, fmt.Errorf("%s", res.Error)))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	e.sendProgress(prog, writingManifestUpdate(manifestPath))
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("bulk export finished", "dir", opts.OutputDir, "exported", result.SuccessfulExports, "failed", result.FailedExports)
	return result, nil
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func (e *LibraryEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan PlaylistExportJob,
	results chan<- PlaylistExportResult,
	format, dir string,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}

		res := PlaylistExportResult{PlaylistName: job.Export.Name, Tracks: len(job.Export.Tracks)}
		path, err := formatter.WriteExport(job.Export, format, dir, job.Base)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Success = true
			res.File = path
		}
		results <- res
	}
}

func lookup(entries []models.PlaylistEntry, name string) (models.PlaylistEntry, bool) {
	for _, entry := range entries {
		if entry.Name == name {
			return entry, true
		}
	}
	return models.PlaylistEntry{}, false
}

// uniqueBase suffixes base with a counter when several playlists share the same slug.
func uniqueBase(used map[string]int, base string) string {
	used[base]++
	if n := used[base]; n > 1 {
		return base + "_" + strconv.Itoa(n)
	}
	return base
}
