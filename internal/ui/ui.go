package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/syncstore"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ListView ViewState = iota
	InputView
	ConfirmView
)

// Store is the local-first todo store the TUI drives.
type Store interface {
	List() []models.Todo
	Add(text string) (models.Todo, error)
	Toggle(id string) (models.Todo, error)
	Edit(id, text string) (models.Todo, error)
	Delete(id string) error
	ClearAll() int
	Status() syncstore.Status
	Subscribe() (<-chan syncstore.Event, func())
	Sync(ctx context.Context) error
}

var _ Store = (*syncstore.Store)(nil)

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	store   Store
	events  <-chan syncstore.Event
	cancel  func()
	width   int
	height  int
	list    list.Model
	input   textinput.Model
	editing string
	status  syncstore.Status
	syncing bool
	notice  string
	err     error
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model over store and subscribes to its changes.
func NewModel(ctx context.Context, store Store) *Model {
	events, cancel := store.Subscribe()

	l := list.New(todoItems(store.List()), list.NewDefaultDelegate(), 0, 0)
	l.Title = "Todos"
	l.SetShowHelp(false)

	input := textinput.New()
	input.Placeholder = "What do you want to do today?"
	input.CharLimit = 500

	return &Model{
		ctx:    ctx,
		view:   ListView,
		store:  store,
		events: events,
		cancel: cancel,
		list:   l,
		input:  input,
		status: store.Status(),
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

// Init starts listening for store events.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Close releases the store subscription.
func (m *Model) Close() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		m.input.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ListView:
			return m.handleListKeys(msg)
		case InputView:
			return m.handleInputKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStoreEvent:
		ev := msg.data.(syncstore.Event)
		if ev.Kind == syncstore.TodosChanged {
			m.setTodos(ev.Todos)
		}
		m.status = ev.Status
		return m, m.waitForEvent()

	case MsgFeedClosed:
		m.events = nil
		return m, nil

	case MsgSyncDone:
		m.syncing = false
		if err, _ := msg.data.(error); err != nil {
			m.notice = "sync failed: " + err.Error()
		} else {
			m.notice = "synced"
		}
		m.status = m.store.Status()
		return m, nil
	}
	return m, nil
}

// setTodos replaces the list items while keeping the cursor on the same todo.
func (m *Model) setTodos(todos []models.Todo) {
	selected := m.selectedID()
	m.list.SetItems(todoItems(todos))
	for i, t := range todos {
		if t.TodoID == selected {
			m.list.Select(i)
			break
		}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case InputView:
		return m.renderInput()
	case ConfirmView:
		return m.renderConfirm()
	default:
		return m.renderList()
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	m.err = nil
	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		if id := m.selectedID(); id != "" {
			_, m.err = m.store.Toggle(id)
		}
		return m, nil
	case key.Matches(msg, m.keys.add):
		m.editing = ""
		m.input.SetValue("")
		m.view = InputView
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.edit):
		item, ok := m.list.SelectedItem().(todoItem)
		if !ok {
			return m, nil
		}
		m.editing = item.todo.TodoID
		m.input.SetValue(item.todo.Text)
		m.input.CursorEnd()
		m.view = InputView
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.delete):
		if id := m.selectedID(); id != "" {
			m.err = m.store.Delete(id)
		}
		return m, nil
	case key.Matches(msg, m.keys.clear):
		if len(m.list.Items()) > 0 {
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.sync):
		if m.syncing {
			return m, nil
		}
		m.syncing = true
		m.notice = "syncing…"
		return m, m.runSync()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.input.Blur()
		m.view = ListView
		return m, nil
	case key.Matches(msg, m.keys.submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if m.editing != "" {
			_, m.err = m.store.Edit(m.editing, text)
		} else {
			_, m.err = m.store.Add(text)
		}
		m.input.Blur()
		m.input.SetValue("")
		m.view = ListView
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		n := m.store.ClearAll()
		m.notice = fmt.Sprintf("cleared %d todos", n)
		m.view = ListView
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.view = ListView
	}
	return m, nil
}

func (m *Model) selectedID() string {
	if item, ok := m.list.SelectedItem().(todoItem); ok {
		return item.todo.TodoID
	}
	return ""
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		if events == nil {
			return feedClosedMsg()
		}
		ev, ok := <-events
		if !ok {
			return feedClosedMsg()
		}
		return storeEventMsg(ev)
	}
}

func (m *Model) runSync() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 30*time.Second)
		defer cancel()
		return syncDoneMsg(m.store.Sync(ctx))
	}
}

func (m *Model) renderList() string {
	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n")

	if len(m.list.Items()) == 0 {
		b.WriteString(styles.help.Render("No todos yet. Press a to add one!"))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.toggle, m.keys.add, m.keys.edit, m.keys.delete, m.keys.clear, m.keys.sync, m.keys.quit}))
	return b.String()
}

func (m *Model) renderStatus() string {
	parts := []string{styles.connection(m.status.Online)}

	if m.status.Pending > 0 {
		parts = append(parts, styles.pending.Render(fmt.Sprintf("%d pending", m.status.Pending)))
	}
	if !m.status.LastSync.IsZero() {
		parts = append(parts, styles.help.Render("synced "+m.status.LastSync.Local().Format("15:04:05")))
	}
	if m.status.LastError != "" {
		parts = append(parts, styles.err.Render(m.status.LastError))
	}
	if m.notice != "" {
		parts = append(parts, styles.help.Render(m.notice))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderInput() string {
	title := "New todo"
	if m.editing != "" {
		title = "Edit todo"
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.submit, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s", styles.title.Render(title), m.input.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Clear all todos?")
	info := fmt.Sprintf("\n%d todos will be deleted here and on every synced device.\n", len(m.list.Items()))

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}
