package playlist

import (
	"bytes"
	"context"
	"errors"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/charmbracelet/log"
)

type addCall struct {
	name  string
	files []string
}

type updateCall struct {
	name    string
	newName string
	files   []string
}

type mockCommander struct {
	adds      []addCall
	updates   []updateCall
	addErr    error
	updateErr error
}

func (m *mockCommander) AddPlaylist(ctx context.Context, name string, files []string) error {
	m.adds = append(m.adds, addCall{name: name, files: files})
	return m.addErr
}

func (m *mockCommander) UpdatePlaylist(ctx context.Context, name, newName string, files []string) error {
	m.updates = append(m.updates, updateCall{name: name, newName: newName, files: files})
	return m.updateErr
}

func (m *mockCommander) calls() int { return len(m.adds) + len(m.updates) }

type mockReloader struct {
	count int
	err   error
}

func (m *mockReloader) Reload(ctx context.Context) error {
	m.count++
	return m.err
}

type mockLister struct {
	files []models.FileEntry
	err   error
}

func (m *mockLister) ListFiles(ctx context.Context) ([]models.FileEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.files, nil
}

type mockSource struct {
	subscribers  []func(models.ConfigSnapshot)
	unsubscribed int
}

func (m *mockSource) Subscribe(fn func(models.ConfigSnapshot)) func() {
	m.subscribers = append(m.subscribers, fn)
	idx := len(m.subscribers) - 1
	return func() {
		m.subscribers[idx] = nil
		m.unsubscribed++
	}
}

func (m *mockSource) publish(s models.ConfigSnapshot) {
	for _, fn := range m.subscribers {
		if fn != nil {
			fn(s)
		}
	}
}

var errBackend = errors.New("backend rejected command")

func testLogger() *log.Logger {
	return shared.NewLogger(&bytes.Buffer{})
}

func files(names ...string) []models.FileEntry {
	out := make([]models.FileEntry, len(names))
	for i, n := range names {
		out[i] = models.FileEntry{Filename: n}
	}
	return out
}
