// Package clientdata provides persistent caching for external API client responses.
// Entries are stored as encoded blobs with expiration timestamps for cache-first behavior.
package clientdata

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TablePriceHistory = "price_history"
	TableEventPeriods = "event_periods"
)

// AllTables lists all tables in client_data.db for cleanup operations.
var AllTables = []string{
	TablePriceHistory,
	TableEventPeriods,
}

// codec encodes cache payloads for one table
type codec struct {
	marshal   func(v interface{}) ([]byte, error)
	unmarshal func(data []byte, v interface{}) error
}

var (
	jsonCodec    = codec{marshal: json.Marshal, unmarshal: json.Unmarshal}
	msgpackCodec = codec{marshal: msgpack.Marshal, unmarshal: msgpack.Unmarshal}
)

// tableCodecs doubles as the table name allow-list.
// Price bars are bulky and numeric, so they go through msgpack.
var tableCodecs = map[string]codec{
	TablePriceHistory: msgpackCodec,
	TableEventPeriods: jsonCodec,
}

// Repository provides cache operations for client data.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// lookup ensures the table name is in our allowed list.
// This prevents SQL injection through table names.
func lookup(table string) (codec, error) {
	c, ok := tableCodecs[table]
	if !ok {
		return codec{}, fmt.Errorf("invalid table name: %s", table)
	}
	return c, nil
}

// Store saves data with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert data.
func (r *Repository) Store(table, key string, data interface{}, ttl time.Duration) error {
	c, err := lookup(table)
	if err != nil {
		return err
	}

	blob, err := c.marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	expiresAt := r.now().Add(ttl).Unix()

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (cache_key, data, expires_at) VALUES (?, ?, ?)",
		table,
	)
	if _, err := r.db.Exec(query, key, blob, expiresAt); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}

	return nil
}

// GetIfFresh decodes the entry into dest only if expires_at > now.
// Returns false, nil if the key doesn't exist or data is expired.
// Use Get() to retrieve stale data as a fallback when API calls fail.
func (r *Repository) GetIfFresh(table, key string, dest interface{}) (bool, error) {
	query := fmt.Sprintf("SELECT data FROM %s WHERE cache_key = ? AND expires_at > ?", table)
	return r.load(table, query, dest, key, r.now().Unix())
}

// Get decodes the entry into dest regardless of expiration status.
// Use this as a fallback when API calls fail - stale data is better than no data.
// Returns false, nil if the key doesn't exist.
func (r *Repository) Get(table, key string, dest interface{}) (bool, error) {
	query := fmt.Sprintf("SELECT data FROM %s WHERE cache_key = ?", table)
	return r.load(table, query, dest, key)
}

func (r *Repository) load(table, query string, dest interface{}, args ...interface{}) (bool, error) {
	c, err := lookup(table)
	if err != nil {
		return false, err
	}

	var blob []byte
	err = r.db.QueryRow(query, args...).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get data from %s: %w", table, err)
	}

	if err := c.unmarshal(blob, dest); err != nil {
		return false, fmt.Errorf("failed to decode data from %s: %w", table, err)
	}
	return true, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(table, key string) error {
	if _, err := lookup(table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE cache_key = ?", table)
	if _, err := r.db.Exec(query, key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	return nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(table string) (int64, error) {
	if _, err := lookup(table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)

	result, err := r.db.Exec(query, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}

	return deleted, nil
}

// DeleteAllExpired removes all expired entries from all tables.
// Returns a map of table name to number of rows deleted.
func (r *Repository) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64)

	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table)
		if err != nil {
			return results, fmt.Errorf("failed to delete expired from %s: %w", table, err)
		}
		results[table] = deleted
	}

	return results, nil
}
