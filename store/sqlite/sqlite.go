// Package sqlite provides an embedded-SQL store.Backend on top of
// modernc.org/sqlite, for deployments that want transactional event/snapshot
// storage without shelling out to an external database service. It is a
// drop-in alternative to store.FileBackend; both satisfy store.Backend.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vei-sim/vei/store"
)

// Backend persists events and snapshots to a single sqlite database file.
type Backend struct {
	db *sql.DB
}

// Open creates (or reuses) a sqlite database at path and ensures the schema
// exists.
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite state store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite state store: %w", err)
	}
	return &Backend{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
	idx        INTEGER PRIMARY KEY,
	event_id   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	clock_ms   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshots (
	idx      INTEGER PRIMARY KEY,
	clock_ms INTEGER NOT NULL,
	data     TEXT NOT NULL
);
`

// LoadEvents implements store.Backend.
func (b *Backend) LoadEvents() ([]*store.Event, error) {
	rows, err := b.db.Query(`SELECT idx, event_id, kind, payload, clock_ms FROM events ORDER BY idx ASC`)
	if err != nil {
		// A corrupt database is tolerated the same way a corrupt JSONL log
		// is: reset to empty rather than surface an error.
		return nil, nil
	}
	defer rows.Close()

	var events []*store.Event
	for rows.Next() {
		var e store.Event
		var payload string
		if err := rows.Scan(&e.Index, &e.UUID, &e.Kind, &payload, &e.ClockMS); err != nil {
			break
		}
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			break
		}
		if e.Index != len(events) {
			return nil, nil
		}
		events = append(events, &e)
	}
	return events, nil
}

// AppendEvent implements store.Backend.
func (b *Backend) AppendEvent(e *store.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	_, err = b.db.Exec(
		`INSERT INTO events (idx, event_id, kind, payload, clock_ms) VALUES (?, ?, ?, ?, ?)`,
		e.Index, e.UUID, e.Kind, string(payload), e.ClockMS,
	)
	return err
}

// WriteSnapshot implements store.Backend.
func (b *Backend) WriteSnapshot(s *store.Snapshot) error {
	data, err := json.Marshal(s.Data)
	if err != nil {
		return err
	}
	_, err = b.db.Exec(
		`INSERT OR REPLACE INTO snapshots (idx, clock_ms, data) VALUES (?, ?, ?)`,
		s.Index, s.ClockMS, string(data),
	)
	return err
}

// Close implements store.Backend.
func (b *Backend) Close() error {
	return b.db.Close()
}
