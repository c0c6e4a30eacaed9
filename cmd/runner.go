package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/identity"
	"github.com/desertthunder/todox/internal/repositories"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/desertthunder/todox/internal/syncstore"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	identity   *identity.Client
	storage    repositories.Storage
	journal    *repositories.SyncLogRepository
	remote     syncstore.Remote
	store      *syncstore.Store
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Identity   *identity.Client
	Storage    repositories.Storage
	Journal    *repositories.SyncLogRepository
	Remote     syncstore.Remote
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Now        func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		identity:   opts.Identity,
		storage:    opts.Storage,
		journal:    opts.Journal,
		remote:     opts.Remote,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        opts.Now,
	}
}

// SetLogger replaces the runner's logger, e.g. to keep logs off the TUI's screen.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, authCommand, todosCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// openStorage opens the sqlite database on first use and migrates it.
func (r *Runner) openStorage() (repositories.Storage, error) {
	if r.storage != nil {
		return r.storage, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.storage = repositories.NewKVRepository(db)
	if r.journal == nil {
		r.journal = repositories.NewSyncLogRepository(db)
	}
	return r.storage, nil
}

// Close persists and stops the store, then releases the database handle.
func (r *Runner) Close() error {
	var errs []error
	if r.store != nil {
		errs = append(errs, r.store.Close())
		r.store = nil
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	return errors.Join(errs...)
}
