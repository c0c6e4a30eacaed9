package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	toggle key.Binding
	add    key.Binding
	edit   key.Binding
	delete key.Binding
	clear  key.Binding
	sync   key.Binding
	submit key.Binding
	back   key.Binding
	yes    key.Binding
	no     key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		toggle: key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle")),
		add:    key.NewBinding(key.WithKeys("a", "n"), key.WithHelp("a", "add")),
		edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		delete: key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "delete")),
		clear:  key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear all")),
		sync:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
		submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		yes:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:     key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.add, k.delete, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.toggle},
		{k.add, k.edit, k.delete},
		{k.clear, k.sync, k.quit},
	}
}
