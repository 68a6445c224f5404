// package library manages the music storage directory: scanning, uploads, deletions and change notifications.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/charmbracelet/log"
	"github.com/dhowden/tag"
	"github.com/fsnotify/fsnotify"
	"github.com/tcolgate/mp3"
)

const defaultDebounce = 500 * time.Millisecond

// Library is a directory of audio files.
//
// Filenames are unique across the whole tree: a file is addressed by its base name, wherever it lives.
type Library struct {
	dir        string
	extensions []string
	logger     *log.Logger
	debounce   time.Duration
}

// New creates a Library rooted at dir accepting files with the given extensions.
func New(dir string, extensions []string, logger *log.Logger) *Library {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Library{
		dir:        dir,
		extensions: extensions,
		logger:     logger,
		debounce:   defaultDebounce,
	}
}

// Dir returns the storage directory.
func (l *Library) Dir() string { return l.dir }

// SetDebounce changes how long [Library.Watch] waits for filesystem events to settle.
func (l *Library) SetDebounce(d time.Duration) { l.debounce = d }

// Allowed reports whether name has one of the accepted extensions.
func (l *Library) Allowed(name string) bool {
	return shared.HasExtension(name, l.extensions)
}

// Scan walks the storage directory and returns its audio files sorted by filename.
//
// The directory is created when missing. Files with other extensions are skipped. When the same filename
// exists in several directories only the first one in lexical walk order is listed, the one [Library.Path]
// resolves to.
func (l *Library) Scan() ([]models.FileEntry, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	files := []models.FileEntry{}
	seen := map[string]string{}
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !l.Allowed(d.Name()) {
			return nil
		}
		if first, ok := seen[d.Name()]; ok {
			l.logger.Warn("duplicate filename skipped", "filename", d.Name(), "path", path, "kept", first)
			return nil
		}
		seen[d.Name()] = path

		files = append(files, l.readEntry(path, d))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan storage directory: %w", err)
	}

	models.SortFiles(files)
	return files, nil
}

// Path returns the storage path of name.
func (l *Library) Path(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}

	var found string
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to search storage directory: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrFileNotFound, name)
	}
	return found, nil
}

// Store copies r into the storage directory as name.
func (l *Library) Store(name string, r io.Reader) (models.FileEntry, error) {
	if err := validName(name); err != nil {
		return models.FileEntry{}, err
	}
	if !l.Allowed(name) {
		return models.FileEntry{}, fmt.Errorf("%w: only %s allowed", shared.ErrInvalidExtension, strings.Join(l.extensions, ","))
	}
	if _, err := l.Path(name); err == nil {
		return models.FileEntry{}, fmt.Errorf("%w: %s", shared.ErrFileExists, name)
	}

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return models.FileEntry{}, fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return models.FileEntry{}, fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return models.FileEntry{}, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return models.FileEntry{}, fmt.Errorf("failed to write %s: %w", name, err)
	}

	dest := filepath.Join(l.dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return models.FileEntry{}, fmt.Errorf("failed to save %s: %w", name, err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return models.FileEntry{}, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	l.logger.Info("music file stored", "filename", name, "size", info.Size())
	return l.readEntry(dest, fs.FileInfoToDirEntry(info)), nil
}

// Remove deletes name from the storage directory.
func (l *Library) Remove(name string) error {
	path, err := l.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	l.logger.Info("music file deleted", "filename", name)
	return nil
}

// Watch calls onChange each time files are created, removed or renamed in the storage tree, until ctx is done.
//
// Bursts of events are coalesced: onChange runs once the tree has been quiet for the debounce delay.
// Subdirectories created while watching are watched too.
func (l *Library) Watch(ctx context.Context, onChange func()) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := l.addTree(watcher, l.dir); err != nil {
		return err
	}

	debounce := time.NewTimer(0)
	<-debounce.C

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := l.addTree(watcher, event.Name); err != nil {
						l.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(l.debounce)

		case <-debounce.C:
			l.logger.Debug("storage directory changed", "dir", l.dir)
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("watcher error", "dir", l.dir, "error", err)

		case <-ctx.Done():
			debounce.Stop()
			return nil
		}
	}
}

func (l *Library) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// readEntry builds the catalog entry of path. Unreadable tags leave the metadata empty.
func (l *Library) readEntry(path string, d fs.DirEntry) models.FileEntry {
	entry := models.FileEntry{Filename: d.Name(), Path: path}

	if info, err := d.Info(); err == nil {
		entry.Size = info.Size()
	}

	f, err := os.Open(path)
	if err != nil {
		l.logger.Warn("cannot open music file", "path", path, "error", err)
		return entry
	}
	defer f.Close()

	if m, err := tag.ReadFrom(f); err == nil {
		entry.Title = strings.TrimSpace(m.Title())
		entry.Artist = strings.TrimSpace(m.Artist())
	}

	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			if dur, err := mp3Duration(f); err == nil {
				entry.Duration = int(dur.Seconds())
			}
		}
	}

	return entry
}

func mp3Duration(r io.Reader) (time.Duration, error) {
	d := mp3.NewDecoder(r)
	var (
		frame    mp3.Frame
		skipped  int
		duration time.Duration
	)

	for {
		if err := d.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		duration += frame.Duration()
	}
	return duration, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid filename %q", shared.ErrInvalidInput, name)
	}
	return nil
}
