package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/repositories"
	"github.com/desertthunder/todox/internal/shared"
	tu "github.com/desertthunder/todox/internal/testing"
)

func listTodos(t *testing.T, r *Runner) []models.Todo {
	t.Helper()
	store, err := r.openStore()
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	return store.List()
}

func TestTodosCommands(t *testing.T) {
	t.Run("add pushes when sync is on", func(t *testing.T) {
		runner, output, remote := newTestRunner(t, RunnerOpts{})

		if err := run(runner, "todos", "add", "buy milk"); err != nil {
			t.Fatalf("add: %v", err)
		}

		todos := listTodos(t, runner)
		if len(todos) != 1 || todos[0].Text != "buy milk" {
			t.Fatalf("unexpected todos %+v", todos)
		}
		if _, ok := remote.Row(todos[0].TodoID); !ok {
			t.Error("expected the todo to reach the remote")
		}
		if !strings.Contains(output.String(), "✓ Added") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("add keeps the change queued without sync", func(t *testing.T) {
		runner, _, remote := newTestRunner(t, RunnerOpts{})

		if err := run(runner, "todos", "add", "--sync=false", "offline"); err != nil {
			t.Fatalf("add: %v", err)
		}
		if len(remote.Writes()) != 0 {
			t.Errorf("expected no remote writes, got %v", remote.Writes())
		}
		if pending := len(runner.store.Pending()); pending != 1 {
			t.Errorf("pending = %d, want 1", pending)
		}
	})

	t.Run("failed push is not an error", func(t *testing.T) {
		runner, _, remote := newTestRunner(t, RunnerOpts{})
		remote.FailWrites(shared.ErrServiceUnavailable, -1)

		if err := run(runner, "todos", "add", "flaky"); err != nil {
			t.Fatalf("add: %v", err)
		}
		if pending := len(runner.store.Pending()); pending != 1 {
			t.Errorf("pending = %d, want 1", pending)
		}
	})

	t.Run("add requires text", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, RunnerOpts{})

		if err := run(runner, "todos", "add", "  "); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("toggle edit and delete accept an id prefix", func(t *testing.T) {
		runner, _, remote := newTestRunner(t, RunnerOpts{})

		if err := run(runner, "todos", "add", "write tests"); err != nil {
			t.Fatalf("add: %v", err)
		}
		id := listTodos(t, runner)[0].TodoID
		prefix := id[:8]

		if err := run(runner, "todos", "toggle", prefix); err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if err := run(runner, "todos", "edit", prefix, "write more tests"); err != nil {
			t.Fatalf("edit: %v", err)
		}

		row, _ := remote.Row(id)
		if !row.Done || row.Text != "write more tests" {
			t.Errorf("remote row = %+v", row)
		}

		if err := run(runner, "todos", "rm", prefix); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if len(listTodos(t, runner)) != 0 {
			t.Error("expected the todo to be gone locally")
		}
		if _, ok := remote.Row(id); ok {
			t.Error("expected the todo to be gone remotely")
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, RunnerOpts{})

		if err := run(runner, "todos", "toggle", "nope"); !errors.Is(err, shared.ErrTodoNotFound) {
			t.Errorf("expected ErrTodoNotFound, got %v", err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, RunnerOpts{})

		for _, text := range []string{"a", "b", "c"} {
			if err := run(runner, "todos", "add", "--sync=false", text); err != nil {
				t.Fatalf("add: %v", err)
			}
		}
		if err := run(runner, "todos", "clear", "--sync=false"); err != nil {
			t.Fatalf("clear: %v", err)
		}
		if len(listTodos(t, runner)) != 0 {
			t.Error("expected no visible todos")
		}
		if !strings.Contains(output.String(), "Cleared 3 todos") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("list pulls remote rows as JSON", func(t *testing.T) {
		runner, output, remote := newTestRunner(t, RunnerOpts{})
		now := time.Now().UTC()
		remote.Seed(models.Todo{TodoID: "remote-1", Text: "from the web", Created: now, Updated: now})

		if err := run(runner, "todos", "list", "--pull", "--json", "--pretty=false"); err != nil {
			t.Fatalf("list: %v", err)
		}

		var todos []models.Todo
		if err := json.Unmarshal([]byte(output.String()), &todos); err != nil {
			t.Fatalf("failed to decode %q: %v", output.String(), err)
		}
		if len(todos) != 1 || todos[0].TodoID != "remote-1" {
			t.Errorf("unexpected todos %+v", todos)
		}
	})

	t.Run("list plain", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, RunnerOpts{})

		if err := run(runner, "todos", "list"); err != nil {
			t.Fatalf("list: %v", err)
		}
		if !strings.Contains(output.String(), "No todos yet") {
			t.Errorf("unexpected output %q", output.String())
		}

		output.Reset()
		run(runner, "todos", "add", "--sync=false", "first")
		output.Reset()
		if err := run(runner, "todos", "list"); err != nil {
			t.Fatalf("list: %v", err)
		}
		if !strings.Contains(output.String(), "first") || !strings.Contains(output.String(), "1 pending sync") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("sync", func(t *testing.T) {
		runner, output, remote := newTestRunner(t, RunnerOpts{})

		run(runner, "todos", "add", "--sync=false", "later")
		if err := run(runner, "todos", "sync"); err != nil {
			t.Fatalf("sync: %v", err)
		}
		if len(remote.Writes()) != 1 {
			t.Errorf("writes = %v", remote.Writes())
		}
		if !strings.Contains(output.String(), "(0 pending)") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("export", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, RunnerOpts{})
		path := filepath.Join(t.TempDir(), "out.csv")

		run(runner, "todos", "add", "--sync=false", "ship it")
		if err := run(runner, "todos", "export", "--format", "csv", "--output", path); err != nil {
			t.Fatalf("export: %v", err)
		}
		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "ship it") {
			t.Errorf("unexpected export %q", content)
		}
		if !strings.Contains(output.String(), path) {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("export rejects unknown formats", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, RunnerOpts{})

		if err := run(runner, "todos", "export", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("log needs the journal", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, RunnerOpts{})

		if err := run(runner, "todos", "log"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestTodosLog(t *testing.T) {
	db := tu.OpenTestDB(t)
	runner, output, _ := newTestRunner(t, RunnerOpts{
		Storage: repositories.NewKVRepository(db),
		Journal: repositories.NewSyncLogRepository(db),
	})

	if err := run(runner, "todos", "add", "journaled"); err != nil {
		t.Fatalf("add: %v", err)
	}
	output.Reset()

	if err := run(runner, "todos", "log", "--json"); err != nil {
		t.Fatalf("log: %v", err)
	}

	var entries []repositories.SyncLogEntry
	if err := json.Unmarshal([]byte(output.String()), &entries); err != nil {
		t.Fatalf("failed to decode %q: %v", output.String(), err)
	}
	if len(entries) != 1 || entries[0].Kind != string(models.ChangeCreate) {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestResolveID(t *testing.T) {
	runner, _, _ := newTestRunner(t, RunnerOpts{})
	store, err := runner.openStore()
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}

	a, _ := store.Add("a")
	b, _ := store.Add("b")

	tests := []struct {
		name    string
		arg     string
		want    string
		wantErr error
	}{
		{name: "full id", arg: a.TodoID, want: a.TodoID},
		{name: "unique prefix", arg: b.TodoID[:8], want: b.TodoID},
		{name: "empty", arg: " ", wantErr: shared.ErrMissingArgument},
		{name: "unknown", arg: "zzzz", wantErr: shared.ErrTodoNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveID(store, tt.arg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveID() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveID() = %q, want %q", got, tt.want)
			}
		})
	}
}
