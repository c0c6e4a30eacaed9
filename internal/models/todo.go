package models

import (
	"fmt"
	"strings"
	"time"
)

// Field names shared between the local record, the pending queue and the remote columns.
const (
	FieldText    = "text"
	FieldDone    = "done"
	FieldDeleted = "deleted"
)

// Columns is the select list used against the remote collection.
var Columns = []string{"id", "text", "done", "created_at", "updated_at", "deleted"}

// Fields is a typed partial update: only the pointers that are set are applied.
type Fields struct {
	Text    *string `json:"text,omitempty"`
	Done    *bool   `json:"done,omitempty"`
	Deleted *bool   `json:"deleted,omitempty"`
}

// Names lists the field names set in f.
func (f Fields) Names() []string {
	var names []string
	if f.Text != nil {
		names = append(names, FieldText)
	}
	if f.Done != nil {
		names = append(names, FieldDone)
	}
	if f.Deleted != nil {
		names = append(names, FieldDeleted)
	}
	return names
}

// Empty reports whether no field is set.
func (f Fields) Empty() bool {
	return f.Text == nil && f.Done == nil && f.Deleted == nil
}

// Merge overlays the fields set in next on top of f.
func (f Fields) Merge(next Fields) Fields {
	if next.Text != nil {
		f.Text = next.Text
	}
	if next.Done != nil {
		f.Done = next.Done
	}
	if next.Deleted != nil {
		f.Deleted = next.Deleted
	}
	return f
}

// Without returns f with the named fields cleared.
func (f Fields) Without(names ...string) Fields {
	for _, n := range names {
		switch n {
		case FieldText:
			f.Text = nil
		case FieldDone:
			f.Done = nil
		case FieldDeleted:
			f.Deleted = nil
		}
	}
	return f
}

// Todo is a single todo row. The exported fields match the remote columns.
type Todo struct {
	TodoID  string    `json:"id"`
	Text    string    `json:"text"`
	Done    bool      `json:"done"`
	Created time.Time `json:"created_at"`
	Updated time.Time `json:"updated_at"`
	Deleted bool      `json:"deleted"`

	// FieldUpdated holds the last write time of each field, local or remote.
	FieldUpdated map[string]time.Time `json:"field_updated,omitempty"`
}

var _ Model = (*Todo)(nil)

// NewTodo creates a todo with completion false, stamped at now.
func NewTodo(id, text string, now time.Time) *Todo {
	return &Todo{
		TodoID:  id,
		Text:    text,
		Created: now,
		Updated: now,
		FieldUpdated: map[string]time.Time{
			FieldText:    now,
			FieldDone:    now,
			FieldDeleted: now,
		},
	}
}

func (t *Todo) ID() string           { return t.TodoID }
func (t *Todo) CreatedAt() time.Time { return t.Created }
func (t *Todo) UpdatedAt() time.Time { return t.Updated }

// Validate checks the record can be pushed.
func (t *Todo) Validate() error {
	if strings.TrimSpace(t.TodoID) == "" {
		return fmt.Errorf("todo id is required")
	}
	if t.Created.IsZero() {
		return fmt.Errorf("todo %s: created_at is required", t.TodoID)
	}
	return nil
}

// Clone returns a deep copy.
func (t *Todo) Clone() *Todo {
	c := *t
	c.FieldUpdated = make(map[string]time.Time, len(t.FieldUpdated))
	for k, v := range t.FieldUpdated {
		c.FieldUpdated[k] = v
	}
	return &c
}

// FieldTime returns when name was last written, falling back to the row's update time.
func (t *Todo) FieldTime(name string) time.Time {
	if at, ok := t.FieldUpdated[name]; ok {
		return at
	}
	return t.Updated
}

// Apply writes the set fields at the given time and returns the names that changed.
func (t *Todo) Apply(f Fields, at time.Time) []string {
	if t.FieldUpdated == nil {
		t.FieldUpdated = make(map[string]time.Time)
	}

	var changed []string
	if f.Text != nil && *f.Text != t.Text {
		t.Text = *f.Text
		changed = append(changed, FieldText)
	}
	if f.Done != nil && *f.Done != t.Done {
		t.Done = *f.Done
		changed = append(changed, FieldDone)
	}
	if f.Deleted != nil && *f.Deleted != t.Deleted {
		t.Deleted = *f.Deleted
		changed = append(changed, FieldDeleted)
	}
	for _, name := range f.Names() {
		t.FieldUpdated[name] = at
	}
	if at.After(t.Updated) {
		t.Updated = at
	}
	return changed
}

// Fields returns every field of the record as a full update.
func (t *Todo) Fields() Fields {
	text, done, deleted := t.Text, t.Done, t.Deleted
	return Fields{Text: &text, Done: &done, Deleted: &deleted}
}

// String, Bool are small helpers for building Fields literals.
func String(s string) *string { return &s }
func Bool(b bool) *bool       { return &b }
