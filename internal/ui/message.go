package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/todox/internal/syncstore"
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
	MsgStoreEvent MsgKind = iota
	MsgFeedClosed
	MsgSyncDone
)

// storeEventMsg is the constructor for [MsgStoreEvent]
func storeEventMsg(ev syncstore.Event) Msg {
	return Msg{kind: MsgStoreEvent, data: ev}
}

// feedClosedMsg is the constructor for [MsgFeedClosed]
func feedClosedMsg() Msg {
	return Msg{kind: MsgFeedClosed}
}

// syncDoneMsg is the constructor for [MsgSyncDone]
func syncDoneMsg(err error) Msg {
	return Msg{kind: MsgSyncDone, data: err}
}
