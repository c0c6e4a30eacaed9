// Package syncstore keeps the todo list local-first and reconciles it with the remote collection.
//
// # Local State
//
// A [Store] holds every record in memory, keyed by id. Mutations ([Store.Add], [Store.Toggle],
// [Store.Edit], [Store.Delete], [Store.ClearAll]) apply immediately, append to the pending
// queue, persist the whole state to a [repositories.Storage] blob and wake the push worker.
// They never wait on the network and never return network errors. Toggling an id the store
// does not hold still queues the update, which the remote applies to no row.
//
// # Pending Queue
//
// The queue is replayed in order. A later update to a record merges into that record's
// queued update, so the last write per field wins. Deleting a record whose create was never
// pushed cancels its queued mutations outright.
//
// # Reconciliation
//
// [Store.Start] runs two goroutines:
//
//  1. Push worker: drains the queue head-first through a rate limiter. Failed pushes, remote
//     rejections ([shared.ErrConflict]) included, stay at the head and back off exponentially
//     with a capped interval and no attempt limit. Only changes that fail local validation
//     are dropped. Updates carry the time they were made, so a late push never overwrites a
//     newer remote write.
//  2. Realtime loop: subscribes to the change feed, pulls changes since the persisted cursor
//     after every (re)connect, then applies feed events as they arrive.
//
// Remote rows merge per field: a field with a queued local write keeps the local value unless
// the remote write is newer, and stale remote values never replace newer ones. A remote delete
// always wins over pending local updates. Applying the same remote change twice is a no-op.
// Records deleted while a pull is in flight are not revived by that pull's rows.
//
// # Observing
//
// [Store.Subscribe] returns a channel of [Event] snapshots. Sends never block; a slow
// subscriber only sees the latest snapshot.
package syncstore
