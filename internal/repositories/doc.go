// Package repositories implements local SQLite persistence for the todox client.
//
// The sync store keeps its whole state (records, pending queue, cursor) as named blobs,
// so persistence is a small key-value surface rather than per-entity tables.
//
// Key Implementations:
//   - [KVRepository] : named blob storage over the kv table
//   - [MemoryKV] : in-process blob storage for tests and ephemeral runs
//   - [SyncLogRepository] : append-only record of acknowledged pushes
package repositories
