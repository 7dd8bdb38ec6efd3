// Package history persists device events into SQLite so the fleet's
// past is queryable after the CSV log rotates away. Each row carries
// the event plus a JSON snapshot of the system state at that moment.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avolkov/sentryfleet/internal/audit"
	"github.com/avolkov/sentryfleet/internal/infrastructure/database"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// recordTimeout bounds a single insert. Recording happens on the
	// request path; a wedged database must not hang client commands.
	recordTimeout = 3 * time.Second
)

// Entry is one recorded event with its state snapshot.
type Entry struct {
	ID          int64         `json:"id"`
	SystemID    string        `json:"systemId"`
	EventType   string        `json:"eventType"`
	Description string        `json:"description"`
	State       audit.Subject `json:"state"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Store implements event history persistence over SQLite.
type Store struct {
	db *database.DB
}

// NewStore creates a store over an open database connection. The
// event_history table must already exist; run migrations first.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// RecordEvent inserts one event row. It satisfies the registry's
// Recorder interface, which carries no context; inserts run under an
// internal timeout instead.
func (s *Store) RecordEvent(subject audit.Subject, et audit.EventType, detail string) error {
	if subject.SystemID == "" {
		return fmt.Errorf("system id is required")
	}

	stateJSON, err := json.Marshal(subject)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO event_history (system_id, event_type, description, state) VALUES (?, ?, ?, ?)",
		subject.SystemID,
		string(et),
		detail,
		string(stateJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting event history: %w", err)
	}

	return nil
}

// History returns recent entries for a system, ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - systemID: Unique system identifier
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: History entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (s *Store) History(ctx context.Context, systemID string, limit int) ([]Entry, error) {
	if systemID == "" {
		return nil, fmt.Errorf("system id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, system_id, event_type, description, state, created_at
		 FROM event_history
		 WHERE system_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		systemID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying event history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows, limit)
}

// Recent returns the newest entries across all systems.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, system_id, event_type, description, state, created_at
		 FROM event_history
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying event history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows, limit)
}

// Prune deletes entries older than the given duration.
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM event_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting event history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

func scanEntries(rows *sql.Rows, limit int) ([]Entry, error) {
	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var stateJSON string
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.SystemID, &entry.EventType,
			&entry.Description, &stateJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event history: %w", err)
		}

		if err := json.Unmarshal([]byte(stateJSON), &entry.State); err != nil {
			return nil, fmt.Errorf("unmarshalling state: %w", err)
		}

		timestamp, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event history: %w", err)
	}

	return entries, nil
}

// parseTimestamp parses a timestamp stored in SQLite.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02T15:04:05Z", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
