package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/todox/internal/models"
)

var _ list.Item = todoItem{}

const (
	openIcon = "🟠"
	doneIcon = "✅"
)

// todoItem wraps [models.Todo] to implement [list.Item].
type todoItem struct {
	todo models.Todo
}

func (i todoItem) FilterValue() string { return i.todo.Text }
func (i todoItem) Title() string {
	if i.todo.Done {
		return doneIcon + " " + styles.done.Render(i.todo.Text)
	}
	return openIcon + " " + i.todo.Text
}
func (i todoItem) Description() string {
	desc := "added " + i.todo.Created.Local().Format("Jan 2 15:04")
	if i.todo.Done {
		desc += " • done"
	}
	return desc
}

func todoItems(todos []models.Todo) []list.Item {
	items := make([]list.Item, len(todos))
	for i, t := range todos {
		items[i] = todoItem{todo: t}
	}
	return items
}
