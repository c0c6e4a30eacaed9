package syncstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// Add creates a todo locally and queues its create.
func (s *Store) Add(text string) (models.Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Todo{}, fmt.Errorf("%w: todo text is empty", shared.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	todo := models.NewTodo(s.newID(), text, now)
	s.todos[todo.TodoID] = todo
	s.enqueueLocked(models.Change{
		TodoID:  todo.TodoID,
		Kind:    models.ChangeCreate,
		Fields:  models.Fields{Text: models.String(text), Done: models.Bool(false), Deleted: models.Bool(false)},
		Created: now,
		At:      now,
	})
	s.commitLocked()
	return *todo.Clone(), nil
}

// Toggle flips the completion flag of a visible todo. An unknown or deleted id usually
// lost a race with a delete: nothing changes locally, but the update is still queued
// and lands on no row remotely.
func (s *Store) Toggle(id string) (models.Todo, error) {
	if strings.TrimSpace(id) == "" {
		return models.Todo{}, fmt.Errorf("%w: todo id is empty", shared.ErrMissingArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.visibleLocked(id)
	if err != nil {
		s.enqueueLocked(models.Change{TodoID: id, Kind: models.ChangeUpdate, Fields: models.Fields{Done: models.Bool(true)}, At: s.now()})
		s.commitLocked()
		return models.Todo{TodoID: id}, nil
	}
	return s.updateLocked(t, models.Fields{Done: models.Bool(!t.Done)}), nil
}

// Edit replaces the text of a visible todo.
func (s *Store) Edit(id, text string) (models.Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Todo{}, fmt.Errorf("%w: todo text is empty", shared.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.visibleLocked(id)
	if err != nil {
		return models.Todo{}, err
	}
	return s.updateLocked(t, models.Fields{Text: models.String(text)}), nil
}

// Delete hides a visible todo and queues its removal.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.visibleLocked(id); err != nil {
		return err
	}
	s.deleteLocked(id)
	s.commitLocked()
	return nil
}

// ClearAll deletes every visible todo and returns how many were removed.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, t := range s.todos {
		if t.Deleted {
			continue
		}
		s.deleteLocked(id)
		n++
	}
	if n > 0 {
		s.commitLocked()
	}
	return n
}

func (s *Store) visibleLocked(id string) (*models.Todo, error) {
	t, ok := s.todos[id]
	if !ok || t.Deleted {
		return nil, fmt.Errorf("%w: %s", shared.ErrTodoNotFound, id)
	}
	return t, nil
}

func (s *Store) updateLocked(t *models.Todo, fields models.Fields) models.Todo {
	now := s.now()
	if changed := t.Apply(fields, now); len(changed) > 0 {
		s.enqueueLocked(models.Change{TodoID: t.TodoID, Kind: models.ChangeUpdate, Fields: fields, At: now})
		s.commitLocked()
	}
	return *t.Clone()
}

// deleteLocked cancels a never-pushed record outright, otherwise marks it deleted and
// replaces its queued updates with a single delete.
func (s *Store) deleteLocked(id string) {
	if s.unpushedLocked(id) {
		s.dropQueuedLocked(id)
		delete(s.todos, id)
		return
	}

	now := s.now()
	s.todos[id].Apply(models.Fields{Deleted: models.Bool(true)}, now)
	s.dropQueuedLocked(id)
	s.enqueueLocked(models.Change{TodoID: id, Kind: models.ChangeDelete, Fields: models.Fields{Deleted: models.Bool(true)}, At: now})
}

// unpushedLocked reports whether id's create is still queued and not in flight.
func (s *Store) unpushedLocked(id string) bool {
	for _, c := range s.queue {
		if c.TodoID == id && c.Kind == models.ChangeCreate {
			return c.Seq != s.inflight
		}
	}
	return false
}

// dropQueuedLocked removes every queued change for id except the one in flight.
func (s *Store) dropQueuedLocked(id string) {
	kept := s.queue[:0]
	for _, c := range s.queue {
		if c.TodoID == id && c.Seq != s.inflight {
			continue
		}
		kept = append(kept, c)
	}
	s.queue = kept
}

// enqueueLocked appends c, merging an update into the record's queued update when one
// is waiting. Creates and deletes are never merged.
func (s *Store) enqueueLocked(c models.Change) {
	if c.Kind == models.ChangeUpdate {
		for i := len(s.queue) - 1; i >= 0; i-- {
			q := &s.queue[i]
			if q.TodoID != c.TodoID {
				continue
			}
			if q.Kind == models.ChangeUpdate && q.Seq != s.inflight {
				q.Fields = q.Fields.Merge(c.Fields)
				q.At = c.At
				return
			}
			break
		}
	}

	s.seq++
	c.Seq = s.seq
	s.queue = append(s.queue, c)
}

// pendingFieldsLocked returns the fields of id with a queued local write and when each
// was last written.
func (s *Store) pendingFieldsLocked(id string) map[string]time.Time {
	var fields map[string]time.Time
	for _, c := range s.queue {
		if c.TodoID != id {
			continue
		}
		if fields == nil {
			fields = make(map[string]time.Time)
		}
		for _, name := range c.Fields.Names() {
			fields[name] = c.At
		}
	}
	return fields
}

// commitLocked persists, notifies subscribers and wakes the push worker.
func (s *Store) commitLocked() {
	if err := s.persistLocked(); err != nil {
		s.logger.Error("failed to persist store", "err", err)
		s.status.LastError = err.Error()
	}
	s.notifyLocked(TodosChanged)
	s.signal()
}
