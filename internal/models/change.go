package models

import "time"

// ChangeKind enumerates pending mutation kinds.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Change is one not-yet-acknowledged local mutation in the pending queue.
//
// For creates, Fields carries the full record; for updates only the changed fields.
type Change struct {
	Seq     uint64     `json:"seq"`
	TodoID  string     `json:"todo_id"`
	Kind    ChangeKind `json:"kind"`
	Fields  Fields     `json:"fields"`
	Created time.Time  `json:"created_at,omitempty"`
	At      time.Time  `json:"at"`
	Attempt int        `json:"attempt"`
}

// RemoteEvent enumerates realtime change feed event types.
type RemoteEvent string

const (
	RemoteInsert RemoteEvent = "INSERT"
	RemoteUpdate RemoteEvent = "UPDATE"
	RemoteDelete RemoteEvent = "DELETE"
)

// RemoteChange is a row change reported by the remote collection.
type RemoteChange struct {
	Event  RemoteEvent `json:"type"`
	Record Todo        `json:"record"`
}
