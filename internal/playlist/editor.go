package playlist

import (
	"context"
	"fmt"
	"slices"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
	"github.com/charmbracelet/log"
)

// Mode tells whether the editor creates a playlist or updates an existing one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeUpdate:
		return "update"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// EditorState is the working copy of one playlist while the editor is open.
//
// Assigned ∪ Available always equals the catalog the editor was opened with.
// Available is kept sorted by filename; Assigned keeps the order the user chose.
type EditorState struct {
	Mode         Mode
	OriginalName string // set in update mode
	Name         string
	Assigned     []models.FileEntry
	Available    []models.FileEntry
}

// Tracks returns the assigned filenames in playlist order.
func (s EditorState) Tracks() []string {
	return models.Filenames(s.Assigned)
}

func (s EditorState) clone() EditorState {
	s.Assigned = slices.Clone(s.Assigned)
	s.Available = slices.Clone(s.Available)
	return s
}

// Editor is the dual-list track allocator behind the playlist dialog.
//
// States: closed → open (create or update) → closed, via [Editor.Commit] / [Editor.Finish] or [Editor.Cancel].
type Editor struct {
	commands PlaylistCommander
	reloader ConfigReloader
	logger   *log.Logger

	open    bool
	session uint64
	state   EditorState
	dropped []string
}

// NewEditor creates a closed Editor. reloader may be nil when no configuration feed is wired.
func NewEditor(commands PlaylistCommander, reloader ConfigReloader, logger *log.Logger) *Editor {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Editor{commands: commands, reloader: reloader, logger: logger}
}

// Open starts creating a new playlist: empty name, nothing assigned, the whole catalog available.
//
// Opening an already open editor discards the previous working copy.
func (e *Editor) Open(catalog []models.FileEntry) {
	available := slices.Clone(catalog)
	models.SortFiles(available)

	e.begin(EditorState{
		Mode:      ModeCreate,
		Assigned:  []models.FileEntry{},
		Available: available,
	}, nil)
}

// OpenExisting starts editing playlist name whose saved tracks are given in playlist order.
//
// Each track found in the catalog moves from available to assigned, keeping the given order.
// Tracks with no catalog entry (file removed since the playlist was saved) are dropped and reported by [Editor.Dropped].
func (e *Editor) OpenExisting(catalog []models.FileEntry, name string, tracks []string) {
	available := slices.Clone(catalog)
	models.SortFiles(available)

	assigned := make([]models.FileEntry, 0, len(tracks))
	var dropped []string
	for _, track := range tracks {
		i := indexOf(available, track)
		if i < 0 {
			dropped = append(dropped, track)
			continue
		}
		assigned = append(assigned, available[i])
		available = slices.Delete(available, i, i+1)
	}

	e.begin(EditorState{
		Mode:         ModeUpdate,
		OriginalName: name,
		Name:         name,
		Assigned:     assigned,
		Available:    available,
	}, dropped)

	for _, track := range dropped {
		e.logger.Warn("playlist track has no catalog entry, dropped", "playlist", name, "track", track)
	}
}

func (e *Editor) begin(state EditorState, dropped []string) {
	e.open = true
	e.session++
	e.state = state
	e.dropped = dropped
	e.logger.Debug("editor opened", "mode", state.Mode, "name", state.Name,
		"assigned", len(state.Assigned), "available", len(state.Available))
}

// IsOpen reports whether a playlist is being edited.
func (e *Editor) IsOpen() bool { return e.open }

// State returns a copy of the working state.
func (e *Editor) State() EditorState { return e.state.clone() }

// Dropped returns the saved tracks that had no catalog entry when the editor was opened.
func (e *Editor) Dropped() []string { return slices.Clone(e.dropped) }

// SetName changes the playlist name.
func (e *Editor) SetName(name string) error {
	if !e.open {
		return shared.ErrEditorClosed
	}
	e.state.Name = name
	return nil
}

// MoveToAssigned appends an available file to the end of the assigned tracks.
func (e *Editor) MoveToAssigned(filename string) error {
	if !e.open {
		return shared.ErrEditorClosed
	}
	i := indexOf(e.state.Available, filename)
	if i < 0 {
		return fmt.Errorf("%w: %q is not available", shared.ErrTrackNotFound, filename)
	}

	file := e.state.Available[i]
	e.state.Available = slices.Delete(e.state.Available, i, i+1)
	e.state.Assigned = append(e.state.Assigned, file)
	models.SortFiles(e.state.Available)
	return nil
}

// MoveToAvailable returns an assigned track to the available files.
func (e *Editor) MoveToAvailable(filename string) error {
	if !e.open {
		return shared.ErrEditorClosed
	}
	i := indexOf(e.state.Assigned, filename)
	if i < 0 {
		return fmt.Errorf("%w: %q is not assigned", shared.ErrTrackNotFound, filename)
	}

	file := e.state.Assigned[i]
	e.state.Assigned = slices.Delete(e.state.Assigned, i, i+1)
	e.state.Available = append(e.state.Available, file)
	models.SortFiles(e.state.Available)
	return nil
}

// MoveUp swaps an assigned track with its predecessor. No-op on the first track.
func (e *Editor) MoveUp(filename string) error {
	return e.swap(filename, -1)
}

// MoveDown swaps an assigned track with its successor. No-op on the last track.
func (e *Editor) MoveDown(filename string) error {
	return e.swap(filename, 1)
}

func (e *Editor) swap(filename string, delta int) error {
	if !e.open {
		return shared.ErrEditorClosed
	}
	i := indexOf(e.state.Assigned, filename)
	if i < 0 {
		return fmt.Errorf("%w: %q is not assigned", shared.ErrTrackNotFound, filename)
	}
	j := i + delta
	if j < 0 || j >= len(e.state.Assigned) {
		return nil
	}
	e.state.Assigned[i], e.state.Assigned[j] = e.state.Assigned[j], e.state.Assigned[i]
	return nil
}

// Cancel discards the working state. In-flight commits are not cancelled; their result is ignored by [Editor.Finish].
func (e *Editor) Cancel() {
	if e.open {
		e.logger.Debug("editor cancelled", "name", e.state.Name)
	}
	e.close()
}

func (e *Editor) close() {
	e.open = false
	e.state = EditorState{}
	e.dropped = nil
}

// CommitRequest is a validated commit, detached from the editor so it can be sent from another goroutine.
type CommitRequest struct {
	Mode         Mode
	OriginalName string
	Name         string
	Tracks       []string

	session uint64
}

// Send issues the add-playlist or update-playlist command.
func (r CommitRequest) Send(ctx context.Context, commands PlaylistCommander) error {
	if commands == nil {
		return fmt.Errorf("%w: no playlist commander configured", shared.ErrServiceUnavailable)
	}
	switch r.Mode {
	case ModeUpdate:
		return commands.UpdatePlaylist(ctx, r.OriginalName, r.Name, r.Tracks)
	default:
		return commands.AddPlaylist(ctx, r.Name, r.Tracks)
	}
}

// PrepareCommit validates the working state and returns the command to send.
//
// The name is cleaned of surrounding and repeated whitespace; an empty name or an empty track list fails with
// [shared.ErrValidation] and the editor stays open.
func (e *Editor) PrepareCommit() (CommitRequest, error) {
	if !e.open {
		return CommitRequest{}, shared.ErrEditorClosed
	}

	name := shared.CleanName(e.state.Name)
	if name == "" || len(e.state.Assigned) == 0 {
		return CommitRequest{}, fmt.Errorf("%w: please fill playlist name and add tracks to playlist", shared.ErrValidation)
	}

	return CommitRequest{
		Mode:         e.state.Mode,
		OriginalName: e.state.OriginalName,
		Name:         name,
		Tracks:       e.state.Tracks(),
		session:      e.session,
	}, nil
}

// Finish applies the outcome of a sent request.
//
// On failure the editor stays open with its state unchanged and the error is returned wrapped in
// [shared.ErrRemoteCommand]. On success the editor closes. A request from a session that has since been
// closed or reopened is ignored and Finish returns nil.
func (e *Editor) Finish(req CommitRequest, sendErr error) error {
	if !e.open || req.session != e.session {
		e.logger.Debug("ignoring commit result for a closed editor", "name", req.Name)
		return nil
	}

	if sendErr != nil {
		e.logger.Error("playlist commit failed", "mode", req.Mode, "name", req.Name, "error", sendErr)
		return fmt.Errorf("%w: %v", shared.ErrRemoteCommand, sendErr)
	}

	e.logger.Info("playlist saved", "mode", req.Mode, "name", req.Name, "tracks", len(req.Tracks))
	e.close()
	return nil
}

// Commit validates, sends and finishes in one call, then asks for a configuration reload.
//
// A reload failure is returned wrapped in [shared.ErrRemoteFetch]; the editor stays closed since the
// command itself succeeded.
func (e *Editor) Commit(ctx context.Context) error {
	req, err := e.PrepareCommit()
	if err != nil {
		return err
	}

	if err := e.Finish(req, req.Send(ctx, e.commands)); err != nil {
		return err
	}

	return e.Reload(ctx)
}

// Reload requests the backend configuration again, if a reloader is wired.
func (e *Editor) Reload(ctx context.Context) error {
	if e.reloader == nil {
		return nil
	}
	if err := e.reloader.Reload(ctx); err != nil {
		return fmt.Errorf("%w: failed to reload configuration: %v", shared.ErrRemoteFetch, err)
	}
	return nil
}

func indexOf(files []models.FileEntry, filename string) int {
	return slices.IndexFunc(files, func(f models.FileEntry) bool { return f.Filename == filename })
}
