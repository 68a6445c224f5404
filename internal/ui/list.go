package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/CleepDevice/cleepapp-localmusic/internal/formatter"
	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = fileItem{}
)

// playlistItem wraps [models.PlaylistEntry] to implement [list.Item].
type playlistItem struct {
	entry models.PlaylistEntry
}

func (i playlistItem) FilterValue() string { return i.entry.Name }
func (i playlistItem) Title() string {
	if i.entry.IsDefault {
		return i.entry.Name + " ★"
	}
	return i.entry.Name
}
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.entry.TrackCount())
	if i.entry.IsDefault {
		desc += " • default"
	}
	return desc
}

// fileItem wraps [models.FileEntry] to implement [list.Item].
type fileItem struct {
	file models.FileEntry
}

func (i fileItem) FilterValue() string { return i.file.Filename }
func (i fileItem) Title() string       { return i.file.Filename }
func (i fileItem) Description() string {
	var parts []string
	switch {
	case i.file.Artist != "" && i.file.Title != "":
		parts = append(parts, i.file.Artist+" - "+i.file.Title)
	case i.file.Title != "":
		parts = append(parts, i.file.Title)
	}
	if i.file.Duration > 0 {
		parts = append(parts, formatter.FormatDuration(i.file.Duration))
	}
	return strings.Join(parts, " • ")
}

func playlistItems(entries []models.PlaylistEntry) []list.Item {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = playlistItem{entry: e}
	}
	return items
}

func fileItems(files []models.FileEntry) []list.Item {
	items := make([]list.Item, len(files))
	for i, f := range files {
		items[i] = fileItem{file: f}
	}
	return items
}

// newList creates a list with the TUI defaults. Compact lists show one line per item.
func newList(title string, compact bool) list.Model {
	delegate := list.NewDefaultDelegate()
	if compact {
		delegate.ShowDescription = false
		delegate.SetSpacing(0)
	}

	l := list.New(nil, delegate, 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}
