package tasks

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"golang.org/x/time/rate"
)

// BulkUploadOpts contains configuration for bulk uploads.
type BulkUploadOpts struct {
	Extensions   []string // Extensions picked up when walking directories
	NumWorkers   int      // Concurrent workers (default: 3)
	RateLimit    float64  // Uploads per second (default: 2)
	SkipExisting bool     // Skip files whose name is already in the catalog
}

// FileUploadResult is the outcome of one upload.
type FileUploadResult struct {
	Path     string
	Filename string
	Success  bool
	Skipped  bool
	Error    error
}

// BulkUploadResult summarizes a bulk upload.
type BulkUploadResult struct {
	TotalFiles int
	Uploaded   int
	Skipped    int
	Failed     int
	Results    []FileUploadResult
}

// ExpandPaths resolves paths into the music files to upload.
//
// Directories are walked recursively, keeping files with one of exts. Files named explicitly are kept
// whatever their extension so the backend can reject them. The result is sorted and free of duplicates.
func ExpandPaths(paths []string, exts []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}

		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && shared.HasExtension(d.Name(), exts) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

// BulkUpload uploads the music files found under paths with a bounded worker pool.
//
// Individual failures are reported in the result; only setup errors are returned.
func (e *LibraryEngine) BulkUpload(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	paths []string,
	opts BulkUploadOpts,
) (*BulkUploadResult, error) {
	if e.dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	files, err := ExpandPaths(paths, opts.Extensions)
	if err != nil {
		return nil, err
	}

	existing := map[string]bool{}
	if opts.SkipExisting {
		e.sendProgress(prog, fetchingCatalogUpdate(1, 1))
		catalog, err := e.dispatcher.ListFiles(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrRemoteFetch, err)
		}
		for _, f := range catalog {
			existing[f.Filename] = true
		}
	}

	result := &BulkUploadResult{
		TotalFiles: len(files),
		Results:    make([]FileUploadResult, 0, len(files)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan string, len(files))
	results := make(chan FileUploadResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.uploadWorker(ctx, &wg, limiter, jobs, results)
	}

	go func() {
		defer close(jobs)
		for _, path := range files {
			name := filepath.Base(path)
			if existing[name] {
				results <- FileUploadResult{Path: path, Filename: name, Skipped: true}
				continue
			}
			select {
			case <-ctx.Done():
				return
			case jobs <- path:
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

		switch {
		case res.Skipped:
			result.Skipped++
			e.sendProgress(prog, uploadSkippedUpdate(completed, len(files), res))
		case res.Success:
			result.Uploaded++
			e.sendProgress(prog, uploadCompletedUpdate(completed, len(files), res))
		default:
			result.Failed++
			e.sendProgress(prog, uploadFailedUpdate(completed, len(files), res))
		}
	}

	e.logger.Info("bulk upload finished", "uploaded", result.Uploaded, "skipped", result.Skipped, "failed", result.Failed)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// uploadWorker uploads files from the jobs channel until it is closed or ctx is done.
func (e *LibraryEngine) uploadWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan string,
	results chan<- FileUploadResult,
) {
	defer wg.Done()

	for path := range jobs {
		res := FileUploadResult{Path: path, Filename: filepath.Base(path)}
		if err := limiter.Wait(ctx); err != nil {
			res.Error = err
			results <- res
			continue
		}
		res.Error = e.uploadFile(ctx, path, res.Filename)
		res.Success = res.Error == nil
		results <- res
	}
}

func (e *LibraryEngine) uploadFile(ctx context.Context, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return e.dispatcher.AddFile(ctx, name, f)
}
