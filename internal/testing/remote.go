package testing

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// FakeRemote is an in-memory remote todo collection with a controllable change feed.
type FakeRemote struct {
	mu           sync.Mutex
	rows         map[string]*models.Todo
	writes       []string
	failErr      error
	failN        int
	feed         chan models.RemoteChange
	subscribed   chan struct{}
	SubscribeErr error
	Now          func() time.Time
}

// NewFakeRemote creates an empty [FakeRemote].
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		rows:       make(map[string]*models.Todo),
		subscribed: make(chan struct{}, 1),
		Now:        time.Now,
	}
}

// Seed stores rows as if other clients had written them.
func (f *FakeRemote) Seed(rows ...models.Todo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.rows[r.TodoID] = r.Clone()
	}
}

// FailWrites makes the next n writes return err. n < 0 fails until cleared.
func (f *FakeRemote) FailWrites(err error, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr, f.failN = err, n
}

// Writes lists successful writes as "kind id" in order.
func (f *FakeRemote) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.writes)
}

// Row returns the stored row for id.
func (f *FakeRemote) Row(id string) (models.Todo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return models.Todo{}, false
	}
	return *r.Clone(), true
}

// Len returns the number of stored rows.
func (f *FakeRemote) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *FakeRemote) failLocked() error {
	if f.failErr == nil || f.failN == 0 {
		return nil
	}
	if f.failN > 0 {
		f.failN--
	}
	return f.failErr
}

func (f *FakeRemote) Select(ctx context.Context, columns ...string) ([]*models.Todo, error) {
	return f.ChangesSince(ctx, time.Time{})
}

func (f *FakeRemote) ChangesSince(ctx context.Context, cursor time.Time) ([]*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Todo
	for _, r := range f.rows {
		if cursor.IsZero() || r.Updated.After(cursor) {
			out = append(out, r.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Todo) int { return a.Updated.Compare(b.Updated) })
	return out, nil
}

func (f *FakeRemote) Create(ctx context.Context, todo *models.Todo) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failLocked(); err != nil {
		return err
	}
	f.rows[todo.TodoID] = todo.Clone()
	f.writes = append(f.writes, "create "+todo.TodoID)
	return nil
}

// Update patches row id when it was last written before at, like the collection's
// conditional PATCH. A zero at applies unconditionally at [FakeRemote.Now].
func (f *FakeRemote) Update(ctx context.Context, id string, fields models.Fields, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failLocked(); err != nil {
		return err
	}
	if r, ok := f.rows[id]; ok {
		switch {
		case at.IsZero():
			r.Apply(fields, f.Now())
		case r.Updated.Before(at):
			r.Apply(fields, at)
		}
	}
	f.writes = append(f.writes, "update "+id)
	return nil
}

func (f *FakeRemote) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failLocked(); err != nil {
		return err
	}
	delete(f.rows, id)
	f.writes = append(f.writes, "delete "+id)
	return nil
}

// Subscribe opens a feed that stays open until ctx ends or [FakeRemote.CloseFeed].
func (f *FakeRemote) Subscribe(ctx context.Context) (<-chan models.RemoteChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}

	ch := make(chan models.RemoteChange, 64)
	f.feed = ch
	go func() {
		<-ctx.Done()
		f.closeFeed(ch)
	}()

	select {
	case f.subscribed <- struct{}{}:
	default:
	}
	return ch, nil
}

// Subscribed is signalled each time a feed opens.
func (f *FakeRemote) Subscribed() <-chan struct{} { return f.subscribed }

// Emit delivers change on the open feed.
func (f *FakeRemote) Emit(change models.RemoteChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.feed == nil {
		return fmt.Errorf("%w: no open feed", shared.ErrServiceUnavailable)
	}
	f.feed <- change
	return nil
}

// CloseFeed drops the open feed as if the connection was lost.
func (f *FakeRemote) CloseFeed() {
	f.mu.Lock()
	ch := f.feed
	f.mu.Unlock()
	if ch != nil {
		f.closeFeed(ch)
	}
}

func (f *FakeRemote) closeFeed(ch chan models.RemoteChange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.feed == ch {
		f.feed = nil
		close(ch)
	}
}
