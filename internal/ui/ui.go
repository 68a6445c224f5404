package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/playlist"
	"github.com/CleepDevice/cleepapp-localmusic/internal/services"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistsView ViewState = iota
	EditorView
	FilesView
	ConfirmView
)

// pane is the focused element of the editor.
type pane int

const (
	paneName pane = iota
	paneAvailable
	paneAssigned
)

// Model represents the TUI application state.
//
// Every field is owned by the bubbletea goroutine. Remote calls run as [tea.Cmd]s and report back through [Msg];
// configuration snapshots published by the feed are handed over through a [playlist.Mailbox].
type Model struct {
	ctx        context.Context
	dispatcher services.Dispatcher
	feed       *services.ConfigFeed
	mailbox    *playlist.Mailbox
	reconciler *playlist.Reconciler
	catalog    *playlist.Catalog
	editor     *playlist.Editor
	logger     *log.Logger

	unsubscribe func()

	view          ViewState
	width         int
	height        int
	playlistList  list.Model
	filesList     list.Model
	availableList list.Model
	assignedList  list.Model
	nameInput     textinput.Model
	focus         pane
	pending       deletion
	playOpts      models.PlayOptions
	status        string
	statusLevel   log.Level
	help          help.Model
	keys          keyMap
}

// deletion is a playlist or file awaiting confirmation.
type deletion struct {
	name string
	file bool
}

func (d deletion) kind() string {
	if d.file {
		return "File"
	}
	return "Playlist"
}

// NewModel creates a TUI model issuing commands through d and receiving configuration from feed.
func NewModel(ctx context.Context, d services.Dispatcher, feed *services.ConfigFeed, logger *log.Logger) *Model {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	name := textinput.New()
	name.Placeholder = "Playlist name"
	name.CharLimit = 64

	m := &Model{
		ctx:           ctx,
		dispatcher:    d,
		feed:          feed,
		mailbox:       playlist.NewMailbox(),
		reconciler:    playlist.NewReconciler(nil, shared.WithLogger(logger, "component", "reconciler")),
		catalog:       playlist.NewCatalog(d, shared.WithLogger(logger, "component", "catalog")),
		editor:        playlist.NewEditor(d, feed, shared.WithLogger(logger, "component", "editor")),
		logger:        logger,
		view:          PlaylistsView,
		playlistList:  newList("Playlists", false),
		filesList:     newList("Music files", false),
		availableList: newList("Available", true),
		assignedList:  newList("Playlist", true),
		nameInput:     name,
		help:          help.New(),
		keys:          newKeyMap(),
	}
	m.unsubscribe = feed.Subscribe(m.mailbox.Put)
	return m
}

// Close drops the feed subscription.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Config returns the shared configuration cell.
func (m *Model) Config() *playlist.ConfigCell { return m.reconciler.Cell() }

// Init waits for configuration snapshots and fetches the catalog and the configuration.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForConfig(), m.fetchCatalog(), m.reloadConfig())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case PlaylistsView:
			return m.handlePlaylistsKeys(msg)
		case EditorView:
			return m.handleEditorKeys(msg)
		case FilesView:
			return m.handleFilesKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgConfigReceived:
		if m.reconciler.Apply(msg.data.(models.ConfigSnapshot)) {
			cmd := m.playlistList.SetItems(playlistItems(m.Config().Playlists()))
			return m, tea.Batch(cmd, m.waitForConfig())
		}
		return m, m.waitForConfig()

	case MsgCatalogFetched:
		res := msg.data.(catalogResult)
		if res.err != nil {
			m.setError(res.err)
			return m, nil
		}
		m.catalog.Replace(res.files)
		return m, m.filesList.SetItems(fileItems(m.catalog.Files()))

	case MsgCommandDone:
		res := msg.data.(commandResult)
		if res.err != nil {
			m.setError(res.err)
			return m, nil
		}
		m.setStatus(res.action)
		return m, tea.Batch(m.fetchCatalog(), m.reloadConfig())

	case MsgCommitDone:
		res := msg.data.(commitResult)
		if err := m.editor.Finish(res.req, res.err); err != nil {
			m.setError(err)
			return m, nil
		}
		if m.editor.IsOpen() || m.view != EditorView {
			// result of a replaced session; the backend state still changed
			if res.err == nil {
				return m, m.reloadConfig()
			}
			return m, nil
		}
		m.view = PlaylistsView
		m.nameInput.Blur()
		m.setStatus(fmt.Sprintf("Playlist %q saved", res.req.Name))
		return m, m.reloadConfig()

	case MsgReloadDone:
		if err, _ := msg.data.(error); err != nil {
			m.setError(err)
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case PlaylistsView:
		body = m.renderPlaylists()
	case EditorView:
		body = m.renderEditor()
	case FilesView:
		body = m.renderFiles()
	case ConfirmView:
		body = m.renderConfirm()
	}

	if m.status == "" {
		return body
	}
	style := styles.ok
	switch m.statusLevel {
	case log.WarnLevel:
		style = styles.warn
	case log.ErrorLevel:
		style = styles.err
	}
	return fmt.Sprintf("%s\n%s", body, style.Render(m.status))
}

func (m *Model) handlePlaylistsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	selected, hasSelection := m.selectedPlaylist()

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.create):
		m.editor.Open(m.catalog.Files())
		return m, m.enterEditor()
	case key.Matches(msg, m.keys.edit):
		if !hasSelection {
			return m, nil
		}
		m.editor.OpenExisting(m.catalog.Files(), selected.Name, selected.Tracks)
		if dropped := m.editor.Dropped(); len(dropped) > 0 {
			m.setWarning(fmt.Sprintf("%d missing tracks dropped from %q", len(dropped), selected.Name))
		}
		return m, m.enterEditor()
	case key.Matches(msg, m.keys.remove):
		if !hasSelection {
			return m, nil
		}
		m.pending = deletion{name: selected.Name}
		m.view = ConfirmView
		return m, nil
	case key.Matches(msg, m.keys.setDef):
		if !hasSelection {
			return m, nil
		}
		return m, m.command(fmt.Sprintf("Default playlist set to %q", selected.Name), func(ctx context.Context) error {
			return m.dispatcher.SetDefaultPlaylist(ctx, selected.Name)
		})
	case key.Matches(msg, m.keys.play):
		if !hasSelection {
			return m, nil
		}
		opts := m.playOpts
		return m, m.command(fmt.Sprintf("Playing %q", selected.Name), func(ctx context.Context) error {
			return m.dispatcher.PlayPlaylist(ctx, selected.Name, opts)
		})
	case key.Matches(msg, m.keys.stop):
		return m, m.command("Playback stopped", m.dispatcher.StopPlayback)
	case key.Matches(msg, m.keys.repeat):
		m.playOpts.Repeat = !m.playOpts.Repeat
		m.setStatus(fmt.Sprintf("Repeat %s", onOff(m.playOpts.Repeat)))
		return m, nil
	case key.Matches(msg, m.keys.shuffle):
		m.playOpts.Shuffle = !m.playOpts.Shuffle
		m.setStatus(fmt.Sprintf("Shuffle %s", onOff(m.playOpts.Shuffle)))
		return m, nil
	case key.Matches(msg, m.keys.files):
		m.view = FilesView
		return m, m.fetchCatalog()
	case key.Matches(msg, m.keys.reload):
		return m, tea.Batch(m.fetchCatalog(), m.reloadConfig())
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleEditorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.editor.Cancel()
		m.nameInput.Blur()
		m.view = PlaylistsView
		m.clearStatus()
		return m, nil
	case key.Matches(msg, m.keys.commit):
		return m, m.commit()
	case key.Matches(msg, m.keys.tab):
		m.cycleFocus(msg.String() == "shift+tab")
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case paneName:
		m.nameInput, cmd = m.nameInput.Update(msg)
		if err := m.editor.SetName(m.nameInput.Value()); err != nil {
			m.setError(err)
		}
		return m, cmd

	case paneAvailable:
		if key.Matches(msg, m.keys.assign) {
			if f, ok := selectedFile(m.availableList); ok {
				m.apply(m.editor.MoveToAssigned(f.Filename), f.Filename)
			}
			return m, nil
		}
		m.availableList, cmd = m.availableList.Update(msg)
		return m, cmd

	case paneAssigned:
		f, ok := selectedFile(m.assignedList)
		switch {
		case key.Matches(msg, m.keys.unassign):
			if ok {
				m.apply(m.editor.MoveToAvailable(f.Filename), f.Filename)
			}
			return m, nil
		case key.Matches(msg, m.keys.moveUp):
			if ok {
				m.apply(m.editor.MoveUp(f.Filename), f.Filename)
			}
			return m, nil
		case key.Matches(msg, m.keys.moveDown):
			if ok {
				m.apply(m.editor.MoveDown(f.Filename), f.Filename)
			}
			return m, nil
		}
		m.assignedList, cmd = m.assignedList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleFilesKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistsView
		return m, nil
	case key.Matches(msg, m.keys.reload):
		return m, m.fetchCatalog()
	case key.Matches(msg, m.keys.remove):
		f, ok := selectedFile(m.filesList)
		if !ok {
			return m, nil
		}
		m.pending = deletion{name: f.Filename, file: true}
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.filesList, cmd = m.filesList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	target := m.pending
	back := PlaylistsView
	if target.file {
		back = FilesView
	}

	switch {
	case key.Matches(msg, m.keys.yes):
		m.pending = deletion{}
		m.view = back
		return m, m.command(fmt.Sprintf("%s %q deleted", target.kind(), target.name), func(ctx context.Context) error {
			if target.file {
				return m.dispatcher.DeleteFile(ctx, target.name)
			}
			return m.dispatcher.DeletePlaylist(ctx, target.name)
		})
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.pending = deletion{}
		m.view = back
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistsView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case FilesView:
		m.filesList, cmd = m.filesList.Update(msg)
	case EditorView:
		if m.focus == paneName {
			m.nameInput, cmd = m.nameInput.Update(msg)
		}
	}
	return m, cmd
}

// enterEditor switches to the editor view with the name input focused.
func (m *Model) enterEditor() tea.Cmd {
	m.view = EditorView
	m.focus = paneName
	m.nameInput.SetValue(m.editor.State().Name)
	m.nameInput.CursorEnd()
	m.syncPanes(m.editor.State(), "")
	return m.nameInput.Focus()
}

func (m *Model) cycleFocus(backwards bool) {
	step := 1
	if backwards {
		step = 2
	}
	m.focus = (m.focus + pane(step)) % 3
	if m.focus == paneName {
		m.nameInput.Focus()
	} else {
		m.nameInput.Blur()
	}
}

// apply reports an editor error or refreshes the panes, keeping filename selected.
func (m *Model) apply(err error, filename string) {
	if err != nil {
		m.setError(err)
		return
	}
	m.syncPanes(m.editor.State(), filename)
}

func (m *Model) syncPanes(state playlist.EditorState, filename string) {
	availIdx := m.availableList.Index()
	assignIdx := m.assignedList.Index()

	m.availableList.SetItems(fileItems(state.Available))
	m.assignedList.SetItems(fileItems(state.Assigned))
	m.assignedList.Title = fmt.Sprintf("Playlist (%d)", len(state.Assigned))

	m.availableList.Select(clamp(availIdx, len(state.Available)))
	m.assignedList.Select(clamp(assignIdx, len(state.Assigned)))
	if filename == "" {
		return
	}
	for i, f := range state.Assigned {
		if f.Filename == filename && m.focus == paneAssigned {
			m.assignedList.Select(i)
		}
	}
}

func (m *Model) commit() tea.Cmd {
	req, err := m.editor.PrepareCommit()
	if err != nil {
		m.setError(err)
		return nil
	}
	m.setStatus(fmt.Sprintf("Saving %q...", req.Name))
	return func() tea.Msg {
		return commitDoneMsg(req, req.Send(m.ctx, m.dispatcher))
	}
}

func (m *Model) selectedPlaylist() (models.PlaylistEntry, bool) {
	item, ok := m.playlistList.SelectedItem().(playlistItem)
	if !ok {
		return models.PlaylistEntry{}, false
	}
	return item.entry, true
}

func selectedFile(l list.Model) (models.FileEntry, bool) {
	item, ok := l.SelectedItem().(fileItem)
	if !ok {
		return models.FileEntry{}, false
	}
	return item.file, true
}

func (m *Model) command(success string, run func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg(success, run(m.ctx))
	}
}

func (m *Model) waitForConfig() tea.Cmd {
	return func() tea.Msg {
		snapshot, err := m.mailbox.Wait(m.ctx)
		if err != nil {
			return nil
		}
		return configReceivedMsg(snapshot)
	}
}

func (m *Model) fetchCatalog() tea.Cmd {
	return func() tea.Msg {
		files, err := m.catalog.Fetch(m.ctx)
		return catalogFetchedMsg(files, err)
	}
}

func (m *Model) reloadConfig() tea.Cmd {
	return func() tea.Msg {
		return reloadDoneMsg(m.editor.Reload(m.ctx))
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusLevel = log.InfoLevel
}

func (m *Model) setWarning(s string) {
	m.status = s
	m.statusLevel = log.WarnLevel
}

func (m *Model) setError(err error) {
	m.logger.Error("tui", "error", err)
	if errors.Is(err, shared.ErrValidation) {
		m.status = err.Error()
	} else {
		m.status = fmt.Sprintf("Error: %v", err)
	}
	m.statusLevel = log.ErrorLevel
}

func (m *Model) clearStatus() {
	m.status = ""
	m.statusLevel = log.InfoLevel
}

func (m *Model) resize() {
	h := max(m.height-6, 3)
	m.playlistList.SetSize(m.width-4, h)
	m.filesList.SetSize(m.width-4, h)

	paneWidth := max(m.width/2-4, 10)
	m.availableList.SetSize(paneWidth, h-3)
	m.assignedList.SetSize(paneWidth, h-3)
	m.nameInput.Width = max(m.width-20, 10)
}

func (m *Model) renderPlaylists() string {
	helpKeys := []key.Binding{m.keys.create, m.keys.edit, m.keys.remove, m.keys.setDef, m.keys.play, m.keys.stop, m.keys.files, m.keys.quit}
	if !m.Config().HasPlaylists() {
		empty := styles.help.Render("No playlist yet. Press n to create one.")
		return fmt.Sprintf("%s\n\n%s\n\n%s", styles.title.Render("Playlists"), empty, m.help.ShortHelpView(helpKeys))
	}
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderEditor() string {
	state := m.editor.State()
	title := "New playlist"
	if state.Mode == playlist.ModeUpdate {
		title = fmt.Sprintf("Edit playlist %q", state.OriginalName)
	}

	nameStyle, availStyle, assignStyle := styles.pane, styles.pane, styles.pane
	switch m.focus {
	case paneName:
		nameStyle = styles.focused
	case paneAvailable:
		availStyle = styles.focused
	case paneAssigned:
		assignStyle = styles.focused
	}

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		availStyle.Render(m.availableList.View()),
		assignStyle.Render(m.assignedList.View()),
	)

	helpKeys := []key.Binding{m.keys.tab, m.keys.assign, m.keys.unassign, m.keys.moveUp, m.keys.moveDown, m.keys.commit, m.keys.back}
	return fmt.Sprintf("%s\n%s\n%s\n\n%s",
		styles.title.Render(title),
		nameStyle.Render(m.nameInput.View()),
		panes,
		m.help.ShortHelpView(helpKeys),
	)
}

func (m *Model) renderFiles() string {
	helpKeys := []key.Binding{m.keys.remove, m.keys.reload, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.filesList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Delete %s %q?", strings.ToLower(m.pending.kind()), m.pending.name))
	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n\n%s", title, m.help.ShortHelpView(helpKeys))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func clamp(i, n int) int {
	if n == 0 {
		return 0
	}
	return min(max(i, 0), n-1)
}
