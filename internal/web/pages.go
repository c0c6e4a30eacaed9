package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/todox/internal/collection"
	"github.com/desertthunder/todox/internal/identity"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/server"
	"github.com/desertthunder/todox/internal/shared"
)

type protectedData struct {
	Claims string
}

type todosData struct {
	Todos   []*models.Todo
	Pending int
}

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "home", view{})
}

func (a *App) handleProtected(w http.ResponseWriter, r *http.Request) {
	user := server.UserFrom(r.Context())
	if user == nil {
		a.redirect(w, r, "/auth/login")
		return
	}

	var claims any = user
	if c, err := identity.ParseClaims(a.accessToken(r)); err == nil {
		claims = c
	}
	data, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		a.logger.Warn("failed to encode claims", "error", err)
	}
	a.render(w, r, http.StatusOK, "protected", view{User: user, Data: protectedData{Claims: string(data)}})
}

func (a *App) handleTodos(w http.ResponseWriter, r *http.Request) {
	token := a.accessToken(r)
	if token == "" {
		a.redirect(w, r, "/auth/login")
		return
	}

	rows, err := a.todos.Select(collection.WithToken(r.Context(), token))
	if err != nil {
		a.logger.Warn("failed to list todos", "error", err)
		status, msg := http.StatusBadGateway, "Could not load your todos."
		if errors.Is(err, shared.ErrNotAuthenticated) {
			status, msg = formError(err)
		}
		a.render(w, r, status, "todos", view{Error: msg, Data: todosData{}})
		return
	}

	visible := slices.DeleteFunc(rows, func(t *models.Todo) bool { return t.Deleted })
	pending := 0
	for _, t := range visible {
		if !t.Done {
			pending++
		}
	}
	a.render(w, r, http.StatusOK, "todos", view{Data: todosData{Todos: visible, Pending: pending}})
}

// handleTodosSubmit applies one form action to the remote collection and redirects back.
func (a *App) handleTodosSubmit(w http.ResponseWriter, r *http.Request) {
	token := a.accessToken(r)
	if token == "" {
		a.redirect(w, r, "/auth/login")
		return
	}
	ctx := collection.WithToken(r.Context(), token)
	id := r.PostFormValue("id")

	// Page writes go out immediately, so updates take the collection's own timestamp.
	var err error
	switch action := r.PostFormValue("action"); action {
	case "add":
		text := strings.TrimSpace(r.PostFormValue("text"))
		if text == "" {
			break
		}
		err = a.todos.Create(ctx, models.NewTodo(a.ids(), text, a.now()))
	case "toggle":
		done := r.PostFormValue("done") != "true"
		err = a.todos.Update(ctx, id, models.Fields{Done: models.Bool(done)}, time.Time{})
	case "delete":
		err = a.todos.Update(ctx, id, models.Fields{Deleted: models.Bool(true)}, time.Time{})
	case "clear":
		var rows []*models.Todo
		if rows, err = a.todos.Select(ctx); err == nil {
			for _, t := range rows {
				if t.Deleted {
					continue
				}
				if err = a.todos.Update(ctx, t.TodoID, models.Fields{Deleted: models.Bool(true)}, time.Time{}); err != nil {
					break
				}
			}
		}
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	if err != nil {
		a.logger.Warn("todo action failed", "id", id, "error", err)
	}
	a.redirect(w, r, "/protected/todos")
}
