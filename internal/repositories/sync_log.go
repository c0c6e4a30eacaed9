package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// SyncLogEntry is one acknowledged push.
type SyncLogEntry struct {
	Seq     int64     `json:"seq"`
	Store   string    `json:"store"`
	TodoID  string    `json:"todo_id"`
	Kind    string    `json:"kind"`
	AckedAt time.Time `json:"acked_at"`
}

// SyncLogRepository appends and lists acknowledged pushes.
type SyncLogRepository struct {
	db *sql.DB
}

// NewSyncLogRepository creates a new [SyncLogRepository] with the given database connection
func NewSyncLogRepository(db *sql.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Record appends an acknowledgement for store.
func (r *SyncLogRepository) Record(store, todoID, kind string, at time.Time) error {
	query := `INSERT INTO sync_log (store, todo_id, kind, acked_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.Exec(query, store, todoID, kind, at.UTC()); err != nil {
		return fmt.Errorf("failed to record sync: %w", err)
	}
	return nil
}

// Recent lists the newest limit entries for store, newest first.
func (r *SyncLogRepository) Recent(store string, limit int) ([]SyncLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT seq, store, todo_id, kind, acked_at
		FROM sync_log
		WHERE store = ?
		ORDER BY seq DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, store, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync log: %w", err)
	}
	defer rows.Close()

	var entries []SyncLogEntry
	for rows.Next() {
		var e SyncLogEntry
		if err := rows.Scan(&e.Seq, &e.Store, &e.TodoID, &e.Kind, &e.AckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of entries recorded for store.
func (r *SyncLogRepository) Count(store string) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM sync_log WHERE store = ?`, store).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sync log: %w", err)
	}
	return n, nil
}
