package syncstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// pushLoop drains the queue until ctx ends, backing off on retryable failures.
func (s *Store) pushLoop(ctx context.Context) {
	bo := s.backoff()

	for {
		err := s.drain(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err == nil:
			bo.Reset()
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			}
		default:
			d := bo.NextBackOff()
			if d == backoff.Stop {
				d = time.Minute
			}
			s.logger.Warn("push failed, retrying", "err", err, "in", d)
			if !sleep(ctx, d) {
				return
			}
		}
	}
}

// drain pushes queued changes head-first until the queue is empty or a push fails.
// Failed changes stay at the head for the next attempt.
func (s *Store) drain(ctx context.Context) error {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	for {
		change, ok := s.claim()
		if !ok {
			return nil
		}

		if err := s.limiter.Wait(ctx); err != nil {
			s.release(change, err)
			return err
		}

		err := s.push(ctx, change)
		switch {
		case err == nil:
			s.acknowledge(change, nil)
		case malformed(err):
			s.logger.Error("dropping malformed change", "todo_id", change.TodoID, "kind", change.Kind, "err", err)
			s.acknowledge(change, err)
		default:
			s.release(change, err)
			return err
		}
	}
}

// malformed reports whether err was raised locally for a change that can never be pushed.
// Remote rejections, conflicts included, stay queued and retry.
func malformed(err error) bool {
	return errors.Is(err, shared.ErrInvalidInput) || errors.Is(err, shared.ErrMissingArgument)
}

// claim marks the queue head as in flight and returns a copy of it.
func (s *Store) claim() (models.Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return models.Change{}, false
	}
	s.queue[0].Attempt++
	s.inflight = s.queue[0].Seq
	return s.queue[0], true
}

func (s *Store) push(ctx context.Context, c models.Change) error {
	switch c.Kind {
	case models.ChangeCreate:
		todo := &models.Todo{TodoID: c.TodoID, Created: c.Created, Updated: c.At}
		if c.Fields.Text != nil {
			todo.Text = *c.Fields.Text
		}
		if c.Fields.Done != nil {
			todo.Done = *c.Fields.Done
		}
		return s.remote.Create(ctx, todo)
	case models.ChangeUpdate:
		return s.remote.Update(ctx, c.TodoID, c.Fields, c.At)
	case models.ChangeDelete:
		return s.remote.Delete(ctx, c.TodoID)
	default:
		return fmt.Errorf("%w: unknown change kind %q", shared.ErrInvalidInput, c.Kind)
	}
}

// acknowledge removes a pushed or malformed change from the queue and persists.
func (s *Store) acknowledge(c models.Change, rejected error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inflight = 0
	for i, q := range s.queue {
		if q.Seq == c.Seq {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}

	if c.Kind == models.ChangeDelete {
		if t, ok := s.todos[c.TodoID]; ok && t.Deleted {
			s.forgetLocked(c.TodoID)
		}
	}

	if rejected != nil {
		s.setStatusLocked(true, rejected)
	} else {
		s.setStatusLocked(true, nil)
		if s.journal != nil {
			if err := s.journal.Record(s.name, c.TodoID, string(c.Kind), s.now()); err != nil {
				s.logger.Warn("failed to record sync", "err", err)
			}
		}
	}

	if err := s.persistLocked(); err != nil {
		s.logger.Error("failed to persist store", "err", err)
	}
	s.notifyLocked(TodosChanged)
}

// release returns an in-flight change to the queue after a failed push.
func (s *Store) release(c models.Change, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inflight = 0
	online := !errors.Is(err, shared.ErrServiceUnavailable) && !errors.Is(err, context.Canceled)
	s.setStatusLocked(online, err)
	if perr := s.persistLocked(); perr != nil {
		s.logger.Error("failed to persist store", "err", perr)
	}
}

// Sync pulls once and drains the queue, returning the first failure. Used by one-shot commands.
func (s *Store) Sync(ctx context.Context) error {
	if err := s.Pull(ctx); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	if err := s.drain(ctx); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

// sleep waits for d or until ctx ends. It reports whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
