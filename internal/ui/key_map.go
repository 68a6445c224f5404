package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	create   key.Binding
	edit     key.Binding
	remove   key.Binding
	setDef   key.Binding
	play     key.Binding
	stop     key.Binding
	repeat   key.Binding
	shuffle  key.Binding
	files    key.Binding
	reload   key.Binding
	tab      key.Binding
	assign   key.Binding
	unassign key.Binding
	moveUp   key.Binding
	moveDown key.Binding
	commit   key.Binding
	back     key.Binding
	yes      key.Binding
	no       key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		create:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		edit:     key.NewBinding(key.WithKeys("e", "enter"), key.WithHelp("e", "edit")),
		remove:   key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		setDef:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "set default")),
		play:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play")),
		stop:     key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "stop")),
		repeat:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "repeat")),
		shuffle:  key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "shuffle")),
		files:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "files")),
		reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		tab:      key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch pane")),
		assign:   key.NewBinding(key.WithKeys("enter", "right"), key.WithHelp("→", "add")),
		unassign: key.NewBinding(key.WithKeys("left", "backspace"), key.WithHelp("←", "remove")),
		moveUp:   key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		moveDown: key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		commit:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:       key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.create, k.edit, k.remove},
		{k.setDef, k.play, k.stop, k.repeat, k.shuffle, k.files, k.reload},
		{k.tab, k.assign, k.unassign, k.moveUp, k.moveDown, k.commit},
		{k.back, k.quit},
	}
}
