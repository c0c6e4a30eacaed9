package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/todox/internal/shared"
)

// Storage loads and saves named blobs. Load returns [shared.ErrBlobNotFound] for unknown names.
type Storage interface {
	Load(name string) ([]byte, error)
	Save(name string, blob []byte) error
}

var (
	_ Storage = (*KVRepository)(nil)
	_ Storage = (*MemoryKV)(nil)
)

// KVRepository implements [Storage] over the kv table.
type KVRepository struct {
	db *sql.DB
}

// NewKVRepository creates a new [KVRepository] with the given database connection
func NewKVRepository(db *sql.DB) *KVRepository {
	return &KVRepository{db: db}
}

// Load returns the blob stored under name.
func (r *KVRepository) Load(name string) ([]byte, error) {
	var blob []byte
	err := r.db.QueryRow(`SELECT blob FROM kv WHERE name = ?`, name).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrBlobNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query blob: %w", err)
	}
	return blob, nil
}

// Save replaces the blob stored under name.
func (r *KVRepository) Save(name string, blob []byte) error {
	query := `
		INSERT INTO kv (name, blob, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, name, blob, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save blob: %w", err)
	}
	return nil
}

// Delete removes the blob stored under name. Deleting an unknown name is not an error.
func (r *KVRepository) Delete(name string) error {
	if _, err := r.db.Exec(`DELETE FROM kv WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Names lists stored blob names in order.
func (r *KVRepository) Names() ([]string, error) {
	rows, err := r.db.Query(`SELECT name FROM kv ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query blob names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan blob name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// MemoryKV implements [Storage] in memory. Saved blobs are copied.
type MemoryKV struct {
	mu    sync.Mutex
	blobs map[string][]byte
	saves int
}

// NewMemoryKV creates an empty [MemoryKV].
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{blobs: make(map[string][]byte)}
}

func (m *MemoryKV) Load(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob, ok := m.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrBlobNotFound, name)
	}
	return append([]byte(nil), blob...), nil
}

func (m *MemoryKV) Save(name string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[name] = append([]byte(nil), blob...)
	m.saves++
	return nil
}

func (m *MemoryKV) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, name)
	return nil
}

// Saves reports how many times Save was called.
func (m *MemoryKV) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
