package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/allaspectsdev/traduko/internal/telemetry"
)

// EventRecord is a persisted telemetry event.
type EventRecord struct {
	ID       int64          `json:"id"`
	TS       string         `json:"ts"`
	Kind     string         `json:"kind"`
	Instance string         `json:"instance,omitempty"`
	Job      string         `json:"job,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// InsertEvent persists a single telemetry event. Details are stored as
// JSON; marshal failures degrade to an empty object rather than losing the
// event.
func (s *Store) InsertEvent(ev telemetry.Event) error {
	details := "{}"
	if len(ev.Details) > 0 {
		if b, err := json.Marshal(ev.Details); err == nil {
			details = string(b)
		}
	}

	_, err := s.writer.Exec(`
		INSERT INTO events (ts, kind, instance, job, details)
		VALUES (?, ?, ?, ?, ?)`,
		ev.TS.UTC().Format(time.RFC3339Nano), string(ev.Kind), ev.Instance, ev.Job, details,
	)
	if err != nil {
		return fmt.Errorf("store: insert event: %w", err)
	}
	return nil
}

// ListEvents returns a page of events ordered newest first. kind filters to
// a single event kind when non-empty.
func (s *Store) ListEvents(kind string, limit, offset int) ([]*EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, ts, kind, instance, job, details
		FROM events`
	args := []any{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.reader.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list events: %w", err)
	}
	defer rows.Close()

	var results []*EventRecord
	for rows.Next() {
		rec := &EventRecord{}
		var details string
		if err := rows.Scan(&rec.ID, &rec.TS, &rec.Kind, &rec.Instance, &rec.Job, &details); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		if details != "" && details != "{}" {
			_ = json.Unmarshal([]byte(details), &rec.Details)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// CountEventsByKind returns event counts per kind across the whole history.
func (s *Store) CountEventsByKind() (map[string]int64, error) {
	rows, err := s.reader.Query("SELECT kind, COUNT(*) FROM events GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("store: count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("store: scan event count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
