package syncstore

import (
	"context"
	"errors"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// ApplyRemote merges one change from the remote collection. It is idempotent and
// reports whether visible state changed.
func (s *Store) ApplyRemote(change models.RemoteChange) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mergeLocked(change) {
		return false
	}
	s.commitLocked()
	return true
}

// mergeLocked applies change to the map and queue without persisting.
func (s *Store) mergeLocked(change models.RemoteChange) bool {
	remote := change.Record
	id := remote.TodoID
	if id == "" {
		return false
	}

	if change.Event == models.RemoteDelete || remote.Deleted {
		return s.removeLocked(id)
	}

	local, ok := s.todos[id]
	if !ok {
		if _, gone := s.deleted[id]; gone {
			return false
		}
		t := remote.Clone()
		t.FieldUpdated = map[string]time.Time{
			models.FieldText:    remote.Updated,
			models.FieldDone:    remote.Updated,
			models.FieldDeleted: remote.Updated,
		}
		if t.Created.IsZero() {
			t.Created = remote.Updated
		}
		s.todos[id] = t
		return true
	}

	pending := s.pendingFieldsLocked(id)
	inflight := s.inflightFieldsLocked(id)
	changed := false

	apply := func(name string, set func() bool) {
		at := remote.Updated
		if _, busy := inflight[name]; busy {
			return
		}
		if localAt, ok := pending[name]; ok {
			if !at.After(localAt) {
				return
			}
			s.supersedeLocked(id, name)
		}
		if at.Before(local.FieldTime(name)) {
			return
		}
		if set() {
			changed = true
		}
		local.FieldUpdated[name] = at
	}

	if local.FieldUpdated == nil {
		local.FieldUpdated = make(map[string]time.Time)
	}
	apply(models.FieldText, func() bool {
		if local.Text == remote.Text {
			return false
		}
		local.Text = remote.Text
		return true
	})
	apply(models.FieldDone, func() bool {
		if local.Done == remote.Done {
			return false
		}
		local.Done = remote.Done
		return true
	})

	if local.Created.IsZero() && !remote.Created.IsZero() {
		local.Created = remote.Created
	}
	if remote.Updated.After(local.Updated) {
		local.Updated = remote.Updated
	}
	return changed
}

// removeLocked drops id and every queued change for it except one in flight.
// Remote deletes win over pending local updates.
func (s *Store) removeLocked(id string) bool {
	_, ok := s.todos[id]
	if !ok {
		return false
	}
	s.forgetLocked(id)
	s.dropQueuedLocked(id)
	return true
}

// forgetLocked removes id from the map. While a pull is fetching, id is remembered so
// rows that pull read before the delete cannot bring the record back.
func (s *Store) forgetLocked(id string) {
	delete(s.todos, id)
	if s.pulls > 0 {
		s.deleted[id] = struct{}{}
	}
}

// inflightFieldsLocked returns the fields being pushed for id right now.
func (s *Store) inflightFieldsLocked(id string) map[string]struct{} {
	if s.inflight == 0 {
		return nil
	}
	for _, c := range s.queue {
		if c.Seq != s.inflight {
			continue
		}
		if c.TodoID != id {
			return nil
		}
		fields := make(map[string]struct{})
		for _, name := range c.Fields.Names() {
			fields[name] = struct{}{}
		}
		return fields
	}
	return nil
}

// supersedeLocked strips a field from id's queued updates after a newer remote write.
// Updates left empty are dropped. Creates keep their full field set.
func (s *Store) supersedeLocked(id, name string) {
	kept := s.queue[:0]
	for _, c := range s.queue {
		if c.TodoID == id && c.Kind == models.ChangeUpdate && c.Seq != s.inflight {
			c.Fields = c.Fields.Without(name)
			if c.Fields.Empty() {
				continue
			}
		}
		kept = append(kept, c)
	}
	s.queue = kept
}

// Pull fetches rows changed since the cursor and merges them.
func (s *Store) Pull(ctx context.Context) error {
	s.mu.Lock()
	cursor := s.cursor
	s.pulls++
	s.mu.Unlock()

	rows, err := s.remote.ChangesSince(ctx, cursor)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.endPullLocked()

	if err != nil {
		s.setStatusLocked(false, err)
		return err
	}

	changed := false
	for _, row := range rows {
		if row == nil {
			continue
		}
		if s.mergeLocked(models.RemoteChange{Event: models.RemoteUpdate, Record: *row}) {
			changed = true
		}
		if row.Updated.After(s.cursor) {
			s.cursor = row.Updated
		}
	}
	s.status.LastSync = s.now()
	s.markOnlineLocked()

	if err := s.persistLocked(); err != nil {
		s.logger.Error("failed to persist store", "err", err)
	}
	if changed {
		s.notifyLocked(TodosChanged)
	}
	s.logger.Debug("pulled changes", "rows", len(rows), "cursor", s.cursor)
	return nil
}

// endPullLocked drops the remembered deletes once no pull is fetching.
func (s *Store) endPullLocked() {
	s.pulls--
	if s.pulls == 0 {
		clear(s.deleted)
	}
}

// realtimeLoop keeps a change-feed subscription open, pulling after every (re)connect.
// Without a feed it degrades to polling on the backoff schedule.
func (s *Store) realtimeLoop(ctx context.Context) {
	bo := s.backoff()

	for {
		changes, err := s.remote.Subscribe(ctx)
		if err != nil && ctx.Err() == nil {
			if errors.Is(err, shared.ErrMissingConfig) {
				s.logger.Debug("realtime disabled, polling", "err", err)
			} else {
				s.logger.Warn("realtime subscribe failed", "err", err)
			}
		}

		if perr := s.Pull(ctx); perr != nil && ctx.Err() == nil {
			s.logger.Warn("pull failed", "err", perr)
		}

		if err == nil {
			bo.Reset()
			for change := range changes {
				s.ApplyRemote(change)
			}
		}

		if ctx.Err() != nil {
			return
		}
		if !sleep(ctx, bo.NextBackOff()) {
			return
		}
	}
}
