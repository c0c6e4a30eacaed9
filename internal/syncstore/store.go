package syncstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/repositories"
	"github.com/desertthunder/todox/internal/shared"
	"golang.org/x/time/rate"
)

// Remote is the remote collection the store reconciles with.
type Remote interface {
	models.Repository[*models.Todo]
	Subscribe(ctx context.Context) (<-chan models.RemoteChange, error)
}

// Journal records acknowledged pushes. Optional.
type Journal interface {
	Record(store, todoID, kind string, at time.Time) error
}

// Options configures [New]. Remote and Storage are required.
type Options struct {
	Name      string // Persisted blob name (default: todos)
	Remote    Remote
	Storage   repositories.Storage
	Journal   Journal
	Logger    *log.Logger
	Clock     func() time.Time
	IDs       func() string
	Backoff   func() backoff.BackOff // Fresh policy per loop (default: capped exponential)
	RateLimit float64                // Pushes per second; <= 0 means unlimited
}

// DefaultBackoff returns a capped exponential policy with no attempt or elapsed-time limit.
func DefaultBackoff(initial, max time.Duration) func() backoff.BackOff {
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	if max <= 0 {
		max = time.Minute
	}
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = max
		return b
	}
}

// Store is the local-first todo collection. All map and queue writes happen under mu.
type Store struct {
	name    string
	remote  Remote
	storage repositories.Storage
	journal Journal
	logger  *log.Logger
	now     func() time.Time
	newID   func() string
	backoff func() backoff.BackOff
	limiter *rate.Limiter

	mu       sync.Mutex
	todos    map[string]*models.Todo
	queue    []models.Change
	seq      uint64
	inflight uint64
	cursor   time.Time
	status   Status
	pulls    int                 // pulls with a fetch in flight
	deleted  map[string]struct{} // ids removed while a pull was in flight
	subs     map[int]chan Event
	nextSub  int
	closed   bool

	pushMu sync.Mutex // one pusher at a time: worker or Sync
	wake   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a [Store]. Call [Store.Load] before use and [Store.Start] to sync.
func New(opts Options) (*Store, error) {
	if opts.Remote == nil {
		return nil, fmt.Errorf("%w: remote collection is required", shared.ErrMissingArgument)
	}
	if opts.Storage == nil {
		return nil, fmt.Errorf("%w: storage is required", shared.ErrMissingArgument)
	}

	s := &Store{
		name:    opts.Name,
		remote:  opts.Remote,
		storage: opts.Storage,
		journal: opts.Journal,
		logger:  opts.Logger,
		now:     opts.Clock,
		newID:   opts.IDs,
		backoff: opts.Backoff,
		todos:   make(map[string]*models.Todo),
		deleted: make(map[string]struct{}),
		subs:    make(map[int]chan Event),
		wake:    make(chan struct{}, 1),
	}
	if s.name == "" {
		s.name = "todos"
	}
	if s.logger == nil {
		s.logger = shared.NewLogger(io.Discard)
	}
	s.logger = shared.WithLogger(s.logger, "component", "syncstore", "store", s.name)
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = shared.GenerateID
	}
	if s.backoff == nil {
		s.backoff = DefaultBackoff(0, 0)
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	s.limiter = rate.NewLimiter(limit, 1)
	return s, nil
}

// Name returns the persisted blob name.
func (s *Store) Name() string { return s.name }

// Load replaces in-memory state with the persisted blob. A missing blob means an empty store.
func (s *Store) Load() error {
	blob, err := s.storage.Load(s.name)
	if errors.Is(err, shared.ErrBlobNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}

	state, err := decodeState(blob)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.todos = make(map[string]*models.Todo, len(state.Todos))
	for i := range state.Todos {
		t := state.Todos[i]
		s.todos[t.TodoID] = &t
	}
	s.queue = state.Queue
	s.seq = state.Seq
	s.cursor = state.Cursor
	s.status.LastSync = state.LastSync
	s.inflight = 0

	s.logger.Debug("loaded store", "todos", len(s.todos), "pending", len(s.queue))
	s.notifyLocked(TodosChanged)
	return nil
}

// Start begins background reconciliation. It returns immediately.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil || s.closed {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.pushLoop(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.realtimeLoop(ctx)
	}()
	s.signal()
}

// Close stops background work, persists state and closes subscriber channels.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.inflight = 0
	err := s.persistLocked()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	return err
}

// Get returns a visible record by id.
func (s *Store) Get(id string) (models.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok || t.Deleted {
		return models.Todo{}, false
	}
	return *t.Clone(), true
}

// List returns visible records ordered by creation time.
func (s *Store) List() []models.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *Store) listLocked() []models.Todo {
	out := make([]models.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if !t.Deleted {
			out = append(out, *t.Clone())
		}
	}
	slices.SortFunc(out, func(a, b models.Todo) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		if a.TodoID < b.TodoID {
			return -1
		}
		if a.TodoID > b.TodoID {
			return 1
		}
		return 0
	})
	return out
}

// Pending returns a copy of the pending queue in replay order.
func (s *Store) Pending() []models.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.queue)
}

// Status reports sync health.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Store) statusLocked() Status {
	st := s.status
	st.Pending = len(s.queue)
	st.Cursor = s.cursor
	return st
}

func (s *Store) setStatusLocked(online bool, err error) {
	before := s.status
	s.status.Online = online
	if err != nil {
		s.status.LastError = err.Error()
	} else if online {
		s.status.LastError = ""
	}
	if before.Online != s.status.Online || before.LastError != s.status.LastError {
		s.notifyLocked(StatusChanged)
	}
}

// markOnlineLocked records a successful round trip without clearing the last push error.
func (s *Store) markOnlineLocked() {
	if !s.status.Online {
		s.status.Online = true
		s.notifyLocked(StatusChanged)
	}
}

// signal wakes the push worker without blocking.
func (s *Store) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
