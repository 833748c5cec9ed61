package cache

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/perfcore/perfcore/pkg/errors"
)

// PersistentStore is a SQLite-backed warm store holding previously hot cache
// entries across process restarts. The optimizer spills entries here before
// memory-pressure eviction and reads them back to warm the live cache during
// preloading. It is strictly best-effort: callers treat every error as a
// degraded preload, never a failure.
type PersistentStore struct {
	db *sql.DB
}

const createWarmTable = `
CREATE TABLE IF NOT EXISTS warm_entries (
	key TEXT NOT NULL PRIMARY KEY,
	value BLOB NOT NULL,
	access_count INTEGER NOT NULL DEFAULT 0,
	expires_at INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// OpenPersistentStore opens (creating if necessary) the warm store at path.
func OpenPersistentStore(path string) (*PersistentStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeStoreOpen, "failed to open warm store").
			WithComponent("cache").WithDetail("path", path).WithCause(err)
	}

	if _, err := db.Exec(createWarmTable); err != nil {
		_ = db.Close()
		return nil, errors.NewError(errors.ErrCodeStoreOpen, "failed to migrate warm store").
			WithComponent("cache").WithDetail("path", path).WithCause(err)
	}

	return &PersistentStore{db: db}, nil
}

// Put stores or replaces a warm entry.
func (p *PersistentStore) Put(e Entry) error {
	var expiresAt int64
	if !e.ExpiresAt.IsZero() {
		expiresAt = e.ExpiresAt.UnixNano()
	}

	_, err := p.db.Exec(
		`INSERT OR REPLACE INTO warm_entries (key, value, access_count, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Key, e.Value, e.AccessCount, expiresAt, time.Now().UTC(),
	)
	if err != nil {
		return errors.NewError(errors.ErrCodeStoreWrite, "warm store put failed").
			WithComponent("cache").WithOperation("put").WithCause(err)
	}
	return nil
}

// PutAll stores a batch of entries; the first failure aborts the batch.
func (p *PersistentStore) PutAll(entries []Entry) error {
	for _, e := range entries {
		if err := p.Put(e); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves a warm entry. Expired or missing entries return false.
func (p *PersistentStore) Get(key string) (Entry, bool, error) {
	var e Entry
	var expiresAt int64

	err := p.db.QueryRow(
		`SELECT key, value, access_count, expires_at FROM warm_entries WHERE key = ?`,
		key,
	).Scan(&e.Key, &e.Value, &e.AccessCount, &expiresAt)

	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.NewError(errors.ErrCodeStoreRead, "warm store get failed").
			WithComponent("cache").WithOperation("get").WithCause(err)
	}

	if expiresAt > 0 {
		e.ExpiresAt = time.Unix(0, expiresAt)
		if !time.Now().Before(e.ExpiresAt) {
			return Entry{}, false, nil
		}
	}

	return e, true, nil
}

// HotEntries returns up to n non-expired entries ordered hottest first:
// highest access count, then most recently updated.
func (p *PersistentStore) HotEntries(n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := p.db.Query(
		`SELECT key, value, access_count, expires_at FROM warm_entries
		 WHERE expires_at = 0 OR expires_at > ?
		 ORDER BY access_count DESC, updated_at DESC LIMIT ?`,
		time.Now().UnixNano(), n,
	)
	if err != nil {
		return nil, errors.NewError(errors.ErrCodeStoreRead, "warm store query failed").
			WithComponent("cache").WithOperation("hot-entries").WithCause(err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var expiresAt int64
		if err := rows.Scan(&e.Key, &e.Value, &e.AccessCount, &expiresAt); err != nil {
			return nil, errors.NewError(errors.ErrCodeStoreRead, "warm store scan failed").
				WithComponent("cache").WithOperation("hot-entries").WithCause(err)
		}
		if expiresAt > 0 {
			e.ExpiresAt = time.Unix(0, expiresAt)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewError(errors.ErrCodeStoreRead, "warm store iteration failed").
			WithComponent("cache").WithOperation("hot-entries").WithCause(err)
	}

	return entries, nil
}

// Delete removes a warm entry. Absent keys are not an error.
func (p *PersistentStore) Delete(key string) error {
	if _, err := p.db.Exec(`DELETE FROM warm_entries WHERE key = ?`, key); err != nil {
		return errors.NewError(errors.ErrCodeStoreWrite, "warm store delete failed").
			WithComponent("cache").WithOperation("delete").WithCause(err)
	}
	return nil
}

// Clear removes all warm entries.
func (p *PersistentStore) Clear() error {
	if _, err := p.db.Exec(`DELETE FROM warm_entries`); err != nil {
		return errors.NewError(errors.ErrCodeStoreWrite, "warm store clear failed").
			WithComponent("cache").WithOperation("clear").WithCause(err)
	}
	return nil
}

// Len returns the number of stored entries, expired included.
func (p *PersistentStore) Len() (int64, error) {
	var count int64
	if err := p.db.QueryRow(`SELECT COUNT(*) FROM warm_entries`).Scan(&count); err != nil {
		return 0, errors.NewError(errors.ErrCodeStoreRead, "warm store count failed").
			WithComponent("cache").WithOperation("len").WithCause(err)
	}
	return count, nil
}

// Close releases the database connection.
func (p *PersistentStore) Close() error {
	if err := p.db.Close(); err != nil {
		return errors.NewError(errors.ErrCodeStoreClose, "warm store close failed").
			WithComponent("cache").WithCause(err)
	}
	return nil
}
