// Package models defines domain entities and persistence interfaces for the todox todo client.
//
// The package contains three groups of types:
//
// 1. Records: the [Todo] row shared with the remote collection, including per-field
// update timestamps used for last-writer-wins merges.
//
// 2. Mutations: [Change] values describing local optimistic edits waiting in the pending
// queue, and [RemoteChange] values arriving from the remote collection (pull or realtime).
//
// 3. Identity: [User] and [Session] as reported by the identity service.
//
// [Todo] implements the [Model] interface. The [Repository] interface describes
// CRUD access to the remote collection.
package models
