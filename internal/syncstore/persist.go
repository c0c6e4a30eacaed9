package syncstore

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

const stateVersion = 1

// state is the persisted form of a store.
type state struct {
	Version  int             `json:"version"`
	Todos    []models.Todo   `json:"todos"`
	Queue    []models.Change `json:"queue"`
	Seq      uint64          `json:"seq"`
	Cursor   time.Time       `json:"cursor"`
	LastSync time.Time       `json:"last_sync"`
}

func decodeState(blob []byte) (*state, error) {
	var st state
	if err := json.Unmarshal(blob, &st); err != nil {
		return nil, fmt.Errorf("%w: corrupt store blob: %v", shared.ErrInvalidInput, err)
	}
	if st.Version != stateVersion {
		return nil, fmt.Errorf("%w: unsupported store version %d", shared.ErrInvalidInput, st.Version)
	}
	return &st, nil
}

// persistLocked writes the full state. Caller holds s.mu.
func (s *Store) persistLocked() error {
	st := state{
		Version:  stateVersion,
		Todos:    make([]models.Todo, 0, len(s.todos)),
		Queue:    s.queue,
		Seq:      s.seq,
		Cursor:   s.cursor,
		LastSync: s.status.LastSync,
	}
	for _, t := range s.todos {
		st.Todos = append(st.Todos, *t)
	}
	slices.SortFunc(st.Todos, func(a, b models.Todo) int { return strings.Compare(a.TodoID, b.TodoID) })

	blob, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	if err := s.storage.Save(s.name, blob); err != nil {
		return fmt.Errorf("failed to save store: %w", err)
	}
	return nil
}
