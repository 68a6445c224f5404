package main

import (
	"context"
	"fmt"

	"github.com/CleepDevice/cleepapp-localmusic/internal/formatter"
	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/CleepDevice/cleepapp-localmusic/internal/tasks"
	"github.com/urfave/cli/v3"
)

// FilesList prints the backend file catalog sorted by filename.
func (r *Runner) FilesList(ctx context.Context, cmd *cli.Command) error {
	files, err := r.dispatcher.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRemoteFetch, err)
	}
	models.SortFiles(files)

	if cmd.Bool("json") || cmd.Bool("pretty") {
		return r.writeJSON(files, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Music files (%d)", len(files)))
	for _, f := range files {
		label := f.Filename
		if f.Title != "" {
			label = fmt.Sprintf("%s  (%s - %s)", f.Filename, f.Artist, f.Title)
		}
		r.writePlain("%6s  %s\n", formatter.FormatDuration(f.Duration), label)
	}
	return nil
}

// FilesAdd uploads every music file found under the given paths.
func (r *Runner) FilesAdd(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: at least one file or directory is required", shared.ErrMissingArgument)
	}

	r.logger.Info("uploading music files", "paths", len(paths))

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchCatalog:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.UploadFile:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.BulkUpload(ctx, progressCh, paths, tasks.BulkUploadOpts{
		Extensions:   r.config.Storage.Extensions,
		NumWorkers:   int(cmd.Int("workers")),
		RateLimit:    cmd.Float("rate"),
		SkipExisting: cmd.Bool("skip-existing"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Upload Complete!")
	r.writePlain("Uploaded: %d/%d\n", result.Uploaded, result.TotalFiles)
	if result.Skipped > 0 {
		r.writePlain("Skipped:  %d\n", result.Skipped)
	}

	if result.Failed > 0 {
		r.writePlain("\nFailed to upload %d files:\n", result.Failed)
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  - %s: %v\n", res.Path, res.Error)
			}
		}
		return fmt.Errorf("%w: %d of %d uploads failed", shared.ErrRemoteCommand, result.Failed, result.TotalFiles)
	}
	return nil
}

// FilesDelete removes files from the backend. Playlists referencing them are pruned by the backend.
func (r *Runner) FilesDelete(ctx context.Context, cmd *cli.Command) error {
	names := cmd.Args().Slice()
	if len(names) == 0 {
		return fmt.Errorf("%w: at least one filename is required", shared.ErrMissingArgument)
	}

	for _, name := range names {
		if err := r.dispatcher.DeleteFile(ctx, name); err != nil {
			return fmt.Errorf("%w: failed to delete %s: %v", shared.ErrRemoteCommand, name, err)
		}
		r.logger.Info("music file deleted", "filename", name)
		r.writePlain("✓ Deleted %s\n", name)
	}
	return nil
}
