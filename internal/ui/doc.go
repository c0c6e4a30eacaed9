// Package ui implements an interactive terminal todo list using bubbletea's Elm architecture.
//
// The TUI has three views over a local-first [Store]:
//  1. [ListView] : Browse, toggle and delete todos
//  2. [InputView] : Add a new todo or edit the selected one
//  3. [ConfirmView] : Confirm clearing every todo
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Store snapshots flow in through the store's subscription channel, so edits made by the realtime feed
// or the push worker redraw the list without polling. Every mutation returns immediately; the footer
// shows whether the store is online and how many changes are waiting to sync.
//
// Keyboard navigation uses vim-style bindings (j/k, space, a, e, d, s, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
