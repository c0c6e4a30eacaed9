// Package collection is the client for the remote todo collection.
//
// Rows are read and written over a REST interface with query-string filters
// (`id=eq.<id>`, `updated_at=gt.<cursor>`), and changes are streamed over a
// websocket channel. [Client] implements [models.Repository] for [*models.Todo].
//
// Failures are classified so the sync store can decide whether to retry:
//   - [shared.ErrServiceUnavailable] : network failure, timeout, 408, 429 or 5xx
//   - [shared.ErrNotAuthenticated] : 401 or 403, retried once the session is refreshed
//   - [shared.ErrConflict] : any other 4xx; the remote rejected the change as sent
//
// [Client.Update] is conditional on `updated_at=lt.<change time>`, so a change pushed
// late is a no-op against a row written after it.
package collection
