package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/playlist"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgConfigReceived MsgKind = iota
	MsgCatalogFetched
	MsgCommandDone
	MsgCommitDone
	MsgReloadDone
)

type catalogResult struct {
	files []models.FileEntry
	err   error
}

type commandResult struct {
	action string
	err    error
}

type commitResult struct {
	req playlist.CommitRequest
	err error
}

// configReceivedMsg is the constructor for [MsgConfigReceived]
func configReceivedMsg(snapshot models.ConfigSnapshot) Msg {
	return Msg{kind: MsgConfigReceived, data: snapshot}
}

// catalogFetchedMsg is the constructor for [MsgCatalogFetched]
func catalogFetchedMsg(files []models.FileEntry, err error) Msg {
	return Msg{kind: MsgCatalogFetched, data: catalogResult{files, err}}
}

// commandDoneMsg is the constructor for [MsgCommandDone]
func commandDoneMsg(action string, err error) Msg {
	return Msg{kind: MsgCommandDone, data: commandResult{action, err}}
}

// commitDoneMsg is the constructor for [MsgCommitDone]
func commitDoneMsg(req playlist.CommitRequest, err error) Msg {
	return Msg{kind: MsgCommitDone, data: commitResult{req, err}}
}

// reloadDoneMsg is the constructor for [MsgReloadDone]
func reloadDoneMsg(err error) Msg {
	return Msg{kind: MsgReloadDone, data: err}
}
