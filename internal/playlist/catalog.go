package playlist

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/charmbracelet/log"
)

// Catalog is the local, sorted mirror of the backend file catalog.
type Catalog struct {
	lister FileLister
	files  []models.FileEntry
	logger *log.Logger
}

// NewCatalog creates an empty Catalog backed by lister.
func NewCatalog(lister FileLister, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Catalog{lister: lister, logger: logger}
}

// Fetch lists the backend files without touching the mirror.
//
// Safe to call from any goroutine.
func (c *Catalog) Fetch(ctx context.Context) ([]models.FileEntry, error) {
	if c.lister == nil {
		return nil, fmt.Errorf("%w: no file lister configured", shared.ErrServiceUnavailable)
	}
	files, err := c.lister.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list music files: %v", shared.ErrRemoteFetch, err)
	}
	return files, nil
}

// Replace sorts files and makes them the new mirror. Entries missing from files disappear.
func (c *Catalog) Replace(files []models.FileEntry) {
	mirror := slices.Clone(files)
	models.SortFiles(mirror)
	c.files = mirror
	c.logger.Debug("catalog replaced", "files", len(mirror))
}

// Refresh fetches the catalog and replaces the mirror. On failure the previous mirror is kept.
func (c *Catalog) Refresh(ctx context.Context) ([]models.FileEntry, error) {
	files, err := c.Fetch(ctx)
	if err != nil {
		c.logger.Warn("catalog refresh failed, keeping previous mirror", "error", err)
		return nil, err
	}
	c.Replace(files)
	return c.Files(), nil
}

// Files returns a copy of the mirror.
func (c *Catalog) Files() []models.FileEntry {
	return slices.Clone(c.files)
}

// Len returns the number of mirrored files.
func (c *Catalog) Len() int { return len(c.files) }

// Lookup finds a file by name.
func (c *Catalog) Lookup(filename string) (models.FileEntry, bool) {
	i, found := slices.BinarySearchFunc(c.files, filename, func(f models.FileEntry, name string) int {
		return strings.Compare(f.Filename, name)
	})
	if !found {
		return models.FileEntry{}, false
	}
	return c.files[i], true
}
