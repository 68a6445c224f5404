// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
)

// Call records one invocation of a [MockDispatcher] method.
type Call struct {
	Method  string
	Name    string
	NewName string
	Files   []string
	Content string
	Options models.PlayOptions
	Snoozed bool
}

// MockDispatcher is an in-memory test double for [services.Dispatcher].
//
// Playlist commands mutate Config the way the backend would, without pruning. Setting Err makes every
// command fail.
type MockDispatcher struct {
	mu       sync.Mutex
	Files    []models.FileEntry
	Config   models.ConfigSnapshot
	Playback models.Playback
	Err      error
	Calls    []Call
}

// NewMockDispatcher creates a MockDispatcher serving files and an empty configuration.
func NewMockDispatcher(files ...string) *MockDispatcher {
	m := &MockDispatcher{Config: models.ConfigSnapshot{Playlists: models.Playlists{}}}
	for _, f := range files {
		m.Files = append(m.Files, models.FileEntry{Filename: f})
	}
	return m
}

func (m *MockDispatcher) record(c Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, c)
	return m.Err
}

// CallsTo returns the recorded calls of method.
func (m *MockDispatcher) CallsTo(method string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockDispatcher) ListFiles(ctx context.Context) ([]models.FileEntry, error) {
	if err := m.record(Call{Method: "ListFiles"}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Files), nil
}

func (m *MockDispatcher) AddFile(ctx context.Context, name string, r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := m.record(Call{Method: "AddFile", Name: name, Content: string(content)}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files = append(m.Files, models.FileEntry{Filename: name})
	models.SortFiles(m.Files)
	return nil
}

func (m *MockDispatcher) DeleteFile(ctx context.Context, filename string) error {
	if err := m.record(Call{Method: "DeleteFile", Name: filename}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files = slices.DeleteFunc(m.Files, func(f models.FileEntry) bool { return f.Filename == filename })
	return nil
}

func (m *MockDispatcher) AddPlaylist(ctx context.Context, name string, files []string) error {
	if err := m.record(Call{Method: "AddPlaylist", Name: name, Files: slices.Clone(files)}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Config.Playlists = m.Config.Playlists.Set(name, slices.Clone(files))
	return nil
}

func (m *MockDispatcher) UpdatePlaylist(ctx context.Context, name, newName string, files []string) error {
	if err := m.record(Call{Method: "UpdatePlaylist", Name: name, NewName: newName, Files: slices.Clone(files)}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if newName == "" {
		newName = name
	}
	if i := m.Config.Playlists.Index(name); i >= 0 {
		m.Config.Playlists[i] = models.NamedTracks{Name: newName, Tracks: slices.Clone(files)}
	}
	if m.Config.Default == name {
		m.Config.Default = newName
	}
	return nil
}

func (m *MockDispatcher) DeletePlaylist(ctx context.Context, name string) error {
	if err := m.record(Call{Method: "DeletePlaylist", Name: name}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Config.Playlists = m.Config.Playlists.Delete(name)
	if m.Config.Default == name {
		m.Config.Default = ""
	}
	return nil
}

func (m *MockDispatcher) SetDefaultPlaylist(ctx context.Context, name string) error {
	if err := m.record(Call{Method: "SetDefaultPlaylist", Name: name}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Config.Default = name
	return nil
}

func (m *MockDispatcher) PlayPlaylist(ctx context.Context, name string, opts models.PlayOptions) error {
	if err := m.record(Call{Method: "PlayPlaylist", Name: name, Options: opts}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tracks, _ := m.Config.Playlists.Get(name)
	m.Playback = models.Playback{Running: true, PlaylistName: name, Tracks: len(tracks), Repeat: opts.Repeat, Shuffle: opts.Shuffle}
	return nil
}

func (m *MockDispatcher) StopPlayback(ctx context.Context) error {
	if err := m.record(Call{Method: "StopPlayback"}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Playback = models.Playback{}
	return nil
}

// StartAlarm resumes a paused playback or plays the default playlist.
func (m *MockDispatcher) StartAlarm(ctx context.Context, opts models.PlayOptions) error {
	if err := m.record(Call{Method: "StartAlarm", Options: opts}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Playback.Running {
		m.Playback.Paused = false
		return nil
	}
	if m.Config.Default == "" {
		return nil
	}
	tracks, _ := m.Config.Playlists.Get(m.Config.Default)
	m.Playback = models.Playback{Running: true, PlaylistName: m.Config.Default, Tracks: len(tracks), Repeat: opts.Repeat, Shuffle: opts.Shuffle}
	return nil
}

func (m *MockDispatcher) StopAlarm(ctx context.Context, snoozed bool) error {
	if err := m.record(Call{Method: "StopAlarm", Snoozed: snoozed}); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if snoozed {
		m.Playback.Paused = m.Playback.Running
	} else {
		m.Playback = models.Playback{}
	}
	return nil
}

func (m *MockDispatcher) GetPlayback(ctx context.Context) (models.Playback, error) {
	if err := m.record(Call{Method: "GetPlayback"}); err != nil {
		return models.Playback{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Playback, nil
}

func (m *MockDispatcher) GetConfig(ctx context.Context) (models.ConfigSnapshot, error) {
	if err := m.record(Call{Method: "GetConfig"}); err != nil {
		return models.ConfigSnapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Config.Clone(), nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
