package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/desertthunder/todox/internal/repositories"
	"github.com/desertthunder/todox/internal/shared"
	tu "github.com/desertthunder/todox/internal/testing"
	"github.com/urfave/cli/v3"
)

// newTestRunner wires a runner to in-memory storage and a fake remote collection.
func newTestRunner(t *testing.T, opts RunnerOpts) (*Runner, *bytes.Buffer, *tu.FakeRemote) {
	t.Helper()

	output := &bytes.Buffer{}
	remote := tu.NewFakeRemote()

	if opts.Storage == nil {
		opts.Storage = repositories.NewMemoryKV()
	}
	if opts.Remote == nil {
		opts.Remote = remote
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	opts.Output = output

	runner := NewRunner(opts)
	t.Cleanup(func() { runner.Close() })
	return runner, output, remote
}

// run executes args against a fresh command tree built from r.
func run(r *Runner, args ...string) error {
	app := &cli.Command{
		Name:     "todox",
		Writer:   io.Discard,
		Commands: r.register(),
	}
	return app.Run(context.Background(), append([]string{"todox"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			storage := repositories.NewMemoryKV()
			remote := tu.NewFakeRemote()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Storage:    storage,
				Remote:     remote,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.storage != storage {
				t.Error("expected storage to be set")
			}
			if runner.remote != remote {
				t.Error("expected remote to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil clock uses time.Now", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.now == nil || runner.now().IsZero() {
				t.Error("expected clock to be set")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writePlainln wraps in newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("done"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "\ndone\n" {
				t.Errorf("expected %q, got %q", "\ndone\n", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "serve", "auth", "todos", "tui"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})

	t.Run("Close", func(t *testing.T) {
		t.Run("without opened resources", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if err := runner.Close(); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		t.Run("persists the store", func(t *testing.T) {
			storage := repositories.NewMemoryKV()
			runner, _, _ := newTestRunner(t, RunnerOpts{Storage: storage})

			if err := run(runner, "todos", "add", "--sync=false", "persist me"); err != nil {
				t.Fatalf("add: %v", err)
			}
			if err := runner.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if runner.store != nil {
				t.Error("expected store to be released")
			}

			if _, err := storage.Load(shared.DefaultConfig().Sync.PersistName); err != nil {
				t.Errorf("expected persisted store blob, got %v", err)
			}
		})
	})
}

func TestSetupConfig(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.toml"
	runner, output, _ := newTestRunner(t, RunnerOpts{})

	if err := run(runner, "setup", "config", "--config", path); err != nil {
		t.Fatalf("setup config: %v", err)
	}
	tu.AssertFileExists(t, path)
	if !strings.Contains(tu.MustReadFile(t, path), "[identity]") {
		t.Error("expected written config to contain the identity section")
	}
	if !strings.Contains(output.String(), "Config written") {
		t.Errorf("unexpected output %q", output.String())
	}

	if err := run(runner, "setup", "config", "--config", path); err == nil {
		t.Error("expected an error when the config already exists")
	}
}

func TestSetupDatabase(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	runner, output, _ := newTestRunner(t, RunnerOpts{})

	if err := run(runner, "setup", "database", "--config", "config.toml"); err != nil {
		t.Fatalf("setup database: %v", err)
	}
	tu.AssertFileExists(t, "config.toml")
	tu.AssertFileExists(t, "todox.db")
	if !strings.Contains(output.String(), "2 migrations applied") {
		t.Errorf("unexpected output %q", output.String())
	}

	output.Reset()
	if err := run(runner, "setup", "database", "--config", "config.toml"); err != nil {
		t.Fatalf("setup database again: %v", err)
	}
	if !strings.Contains(output.String(), "schema up to date") {
		t.Errorf("unexpected output %q", output.String())
	}
}
