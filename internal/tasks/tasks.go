// package tasks implements bulk operations over a localmusic backend.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/services"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/charmbracelet/log"
)

// EndpointResult represents the result of one command issued by [LibraryEngine.Dump].
type EndpointResult struct {
	Command string `json:"command"`
	Error   string `json:"error"`
}

// DumpResult contains everything the backend reports about its library.
type DumpResult struct {
	Files    []models.FileEntry     `json:"files,omitempty"`
	Config   *models.ConfigSnapshot `json:"config,omitempty"`
	Playback *models.Playback       `json:"playback,omitempty"`
	Errors   []EndpointResult       `json:"errors,omitempty"`
}

// Engine defines the bulk operations over a library.
type Engine interface {
	// BulkUpload uploads every music file found under paths.
	BulkUpload(ctx context.Context, progress chan<- ProgressUpdate, paths []string, opts BulkUploadOpts) (*BulkUploadResult, error)

	// BulkExport writes playlists to files in the given format, with a manifest.
	BulkExport(ctx context.Context, progress chan<- ProgressUpdate, names []string, opts BulkExportOpts) (*BulkExportResult, error)

	// Dump fetches the catalog, configuration and playback of the backend.
	Dump(ctx context.Context, progress chan<- ProgressUpdate) (*DumpResult, error)
}

// LibraryEngine implements [Engine] on top of a [services.Dispatcher].
type LibraryEngine struct {
	dispatcher services.Dispatcher
	logger     *log.Logger
}

// NewLibraryEngine creates a LibraryEngine issuing commands through d.
func NewLibraryEngine(d services.Dispatcher, logger *log.Logger) *LibraryEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LibraryEngine{dispatcher: d, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Dump fetches the catalog, configuration and playback. Failed commands are collected, not returned.
func (e *LibraryEngine) Dump(ctx context.Context, progress chan<- ProgressUpdate) (*DumpResult, error) {
	if e.dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher not initialized", shared.ErrServiceUnavailable)
	}

	result := &DumpResult{Errors: []EndpointResult{}}
	fail := func(command string, err error) {
		e.logger.Warn("dump command failed", "command", command, "error", err)
		result.Errors = append(result.Errors, EndpointResult{Command: command, Error: err.Error()})
	}

	e.sendProgress(progress, fetchingCatalogUpdate(1, 3))
	if files, err := e.dispatcher.ListFiles(ctx); err != nil {
		fail(services.CommandGetMusicFiles, err)
	} else {
		result.Files = files
	}

	e.sendProgress(progress, fetchingConfigUpdate(2, 3))
	if snapshot, err := e.dispatcher.GetConfig(ctx); err != nil {
		fail(services.CommandGetModuleConfig, err)
	} else {
		result.Config = &snapshot
	}

	e.sendProgress(progress, fetchingPlaybackUpdate(3, 3))
	if playback, err := e.dispatcher.GetPlayback(ctx); err != nil {
		fail(services.CommandGetPlayback, err)
	} else {
		result.Playback = &playback
	}

	return result, nil
}
