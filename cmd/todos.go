package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/todox/internal/collection"
	"github.com/desertthunder/todox/internal/formatter"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/desertthunder/todox/internal/syncstore"
	"github.com/urfave/cli/v3"
)

const syncTimeout = 30 * time.Second

// openRemote returns the remote collection, authenticating with the stored session.
func (r *Runner) openRemote() (syncstore.Remote, error) {
	if r.remote != nil {
		return r.remote, nil
	}

	client, err := collection.NewClient(r.config.Collection, r.config.Identity.AnonKey, collection.Options{
		Token:  r.accessToken,
		Logger: shared.WithLogger(r.logger, "component", "collection"),
		Now:    r.now,
	})
	if err != nil {
		return nil, err
	}
	r.remote = client
	return client, nil
}

// openStore builds and loads the local-first store on first use.
func (r *Runner) openStore() (*syncstore.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	storage, err := r.openStorage()
	if err != nil {
		return nil, err
	}
	remote, err := r.openRemote()
	if err != nil {
		return nil, err
	}

	opts := syncstore.Options{
		Name:      r.config.Sync.PersistName,
		Remote:    remote,
		Storage:   storage,
		Logger:    shared.WithLogger(r.logger, "component", "store"),
		Clock:     r.now,
		Backoff:   syncstore.DefaultBackoff(r.config.Sync.InitialBackoff(), r.config.Sync.MaxBackoff()),
		RateLimit: r.config.Sync.PushRate,
	}
	if r.journal != nil {
		opts.Journal = r.journal
	}

	store, err := syncstore.New(opts)
	if err != nil {
		return nil, err
	}
	if err := store.Load(); err != nil {
		return nil, err
	}
	r.store = store
	return store, nil
}

// syncAfter pushes pending changes when --sync is set. Failures leave the change queued.
func (r *Runner) syncAfter(ctx context.Context, cmd *cli.Command, store *syncstore.Store) {
	if !cmd.Bool("sync") {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	if err := store.Sync(ctx); err != nil {
		r.logger.Warn("saved locally, sync deferred", "pending", len(store.Pending()), "error", err)
	}
}

// resolveID matches a full id or an unambiguous prefix against visible todos.
func resolveID(store *syncstore.Store, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("%w: todo id is required", shared.ErrMissingArgument)
	}
	if _, ok := store.Get(arg); ok {
		return arg, nil
	}

	var match string
	for _, t := range store.List() {
		if !strings.HasPrefix(t.TodoID, arg) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: id prefix %q matches more than one todo", shared.ErrInvalidArgument, arg)
		}
		match = t.TodoID
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrTodoNotFound, arg)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (r *Runner) writeTodo(prefix string, t models.Todo) error {
	mark := " "
	if t.Done {
		mark = "x"
	}
	return r.writePlain("%s [%s] %s  %s\n", prefix, mark, shortID(t.TodoID), t.Text)
}

// TodosList prints the visible todos in creation order.
func (r *Runner) TodosList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	if cmd.Bool("pull") {
		ctx, cancel := context.WithTimeout(ctx, syncTimeout)
		defer cancel()
		if err := store.Sync(ctx); err != nil {
			r.logger.Warn("sync failed, showing local todos", "error", err)
		}
	}

	todos := store.List()
	if cmd.Bool("json") {
		return r.writeJSON(todos, cmd.Bool("pretty"))
	}

	if len(todos) == 0 {
		return r.writePlain("No todos yet. Add one with 'todox todos add \"text\"'\n")
	}

	done := 0
	for i, t := range todos {
		if t.Done {
			done++
		}
		r.writeTodo(fmt.Sprintf("%3d.", i+1), t)
	}

	status := store.Status()
	r.writePlainln("%d todos, %d done, %d pending sync", len(todos), done, status.Pending)
	return nil
}

// TodosAdd creates a todo.
func (r *Runner) TodosAdd(ctx context.Context, cmd *cli.Command) error {
	text := cmd.StringArg("text")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: todo text is required", shared.ErrMissingArgument)
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	todo, err := store.Add(text)
	if err != nil {
		return err
	}
	r.syncAfter(ctx, cmd, store)
	return r.writeTodo("✓ Added", todo)
}

// TodosToggle flips a todo's completion.
func (r *Runner) TodosToggle(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	id, err := resolveID(store, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	todo, err := store.Toggle(id)
	if err != nil {
		return err
	}
	r.syncAfter(ctx, cmd, store)
	return r.writeTodo("✓ Toggled", todo)
}

// TodosEdit replaces a todo's text.
func (r *Runner) TodosEdit(ctx context.Context, cmd *cli.Command) error {
	text := cmd.StringArg("text")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: todo text is required", shared.ErrMissingArgument)
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}
	id, err := resolveID(store, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	todo, err := store.Edit(id, text)
	if err != nil {
		return err
	}
	r.syncAfter(ctx, cmd, store)
	return r.writeTodo("✓ Edited", todo)
}

// TodosDelete removes a todo.
func (r *Runner) TodosDelete(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}
	id, err := resolveID(store, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if err := store.Delete(id); err != nil {
		return err
	}
	r.syncAfter(ctx, cmd, store)
	return r.writePlain("✓ Deleted %s\n", shortID(id))
}

// TodosClear removes every todo.
func (r *Runner) TodosClear(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	n := store.ClearAll()
	r.syncAfter(ctx, cmd, store)
	return r.writePlain("✓ Cleared %d todos\n", n)
}

// TodosSync pulls remote changes and drains the pending queue.
func (r *Runner) TodosSync(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	r.logger.Info("syncing", "pending", len(store.Pending()))
	if err := store.Sync(ctx); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return fmt.Errorf("%w: run 'todox auth login' first", err)
		}
		return err
	}

	status := store.Status()
	return r.writePlain("✓ Synced %d todos (%d pending)\n", len(store.List()), status.Pending)
}

// TodosExport writes the visible todos to a file.
func (r *Runner) TodosExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(store.List(), format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("exported todos", "format", format, "path", path)
	return r.writePlain("✓ Exported %d todos to %s\n", len(store.List()), path)
}

// TodosLog lists recently acknowledged pushes from the sync journal.
func (r *Runner) TodosLog(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.openStorage(); err != nil {
		return err
	}
	if r.journal == nil {
		return fmt.Errorf("%w: sync journal requires the sqlite database", shared.ErrServiceUnavailable)
	}

	entries, err := r.journal.Recent(r.config.Sync.PersistName, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	if len(entries) == 0 {
		return r.writePlain("No acknowledged pushes yet\n")
	}

	r.writePlainHeader("Sync Log")
	for _, e := range entries {
		r.writePlain("%s  %-6s  %s\n", e.AckedAt.Local().Format(time.DateTime), e.Kind, shortID(e.TodoID))
	}
	return nil
}
