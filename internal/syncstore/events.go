package syncstore

import (
	"time"

	"github.com/desertthunder/todox/internal/models"
)

// EventKind tells subscribers what changed.
type EventKind int

const (
	TodosChanged EventKind = iota
	StatusChanged
)

func (k EventKind) String() string {
	switch k {
	case TodosChanged:
		return "todos_changed"
	case StatusChanged:
		return "status_changed"
	default:
		return ""
	}
}

// Event is a snapshot delivered to subscribers.
type Event struct {
	Kind   EventKind
	Todos  []models.Todo // Visible records, oldest first
	Status Status
}

// Status describes sync health for a status indicator.
type Status struct {
	Online    bool      `json:"online"`
	Pending   int       `json:"pending"`
	LastSync  time.Time `json:"last_sync,omitzero"`
	Cursor    time.Time `json:"cursor,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// Subscribe registers a listener. The channel holds at most one undelivered event and is
// closed by cancel or [Store.Close].
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.sendLocked(ch, s.eventLocked(TodosChanged))

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// notifyLocked fans an event out to every subscriber. Caller holds s.mu.
func (s *Store) notifyLocked(kind EventKind) {
	if len(s.subs) == 0 {
		return
	}
	ev := s.eventLocked(kind)
	for _, ch := range s.subs {
		s.sendLocked(ch, ev)
	}
}

// sendLocked replaces any undelivered event with ev without blocking.
func (s *Store) sendLocked(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}

func (s *Store) eventLocked(kind EventKind) Event {
	return Event{Kind: kind, Todos: s.listLocked(), Status: s.statusLocked()}
}
