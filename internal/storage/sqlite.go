// Package storage provides SQLite-based persistence for session history.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
// Only who played when is recorded; world state is never stored.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store manages the SQLite database connection for session history.
type Store struct {
	db *sql.DB
}

// SessionRecord is one run of the simulation.
type SessionRecord struct {
	ID        string
	Mode      string
	Seed      uint64
	Checksum  string
	Ticks     uint64
	EndReason string // Empty while running
	Events    int    // Filled by RecentSessions
	StartedAt time.Time
	EndedAt   time.Time // Zero while running
}

// EventRecord is a connection event inside a session.
type EventRecord struct {
	ID        int64
	SessionID string
	Tick      uint64
	Kind      string // "joined", "ready", "left", "rejected"
	Conn      uint32
	Entity    uint32
	Name      string
	Reason    string
	CreatedAt time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// One writer; the recorder runs on the tick goroutine.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}
	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			seed INTEGER NOT NULL,
			checksum TEXT NOT NULL,
			ticks INTEGER NOT NULL DEFAULT 0,
			end_reason TEXT,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at DESC);

		CREATE TABLE IF NOT EXISTS session_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			tick INTEGER NOT NULL,
			kind TEXT NOT NULL,
			conn INTEGER NOT NULL DEFAULT 0,
			entity INTEGER NOT NULL DEFAULT 0,
			name TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginSession records the start of a session. rec.ID must be unique.
func (s *Store) BeginSession(rec SessionRecord) error {
	if rec.ID == "" {
		return errors.New("storage: session id required")
	}
	_, err := s.db.Exec(
		"INSERT INTO sessions (id, mode, seed, checksum) VALUES (?, ?, ?, ?)",
		rec.ID, rec.Mode, int64(rec.Seed), rec.Checksum,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot begin session: %w", err)
	}
	return nil
}

// EndSession marks a session finished after ticks ticks.
func (s *Store) EndSession(id string, ticks uint64, reason string) error {
	res, err := s.db.Exec(
		"UPDATE sessions SET ticks = ?, end_reason = ?, ended_at = CURRENT_TIMESTAMP WHERE id = ?",
		int64(ticks), reason, id,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage: unknown session %s", id)
	}
	return nil
}

// RecordEvent appends an event to a session.
// Returns the ID of the inserted record.
func (s *Store) RecordEvent(e EventRecord) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO session_events (session_id, tick, kind, conn, entity, name, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, int64(e.Tick), e.Kind, e.Conn, e.Entity, e.Name, e.Reason,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot record event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

const sessionColumns = `s.id, s.mode, s.seed, s.checksum, s.ticks, s.end_reason, s.started_at, s.ended_at,
	(SELECT COUNT(*) FROM session_events e WHERE e.session_id = s.id)`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (SessionRecord, error) {
	var rec SessionRecord
	var seed, ticks int64
	var reason sql.NullString
	var started, ended any
	if err := row.Scan(&rec.ID, &rec.Mode, &seed, &rec.Checksum, &ticks, &reason, &started, &ended, &rec.Events); err != nil {
		return rec, err
	}
	rec.Seed = uint64(seed)
	rec.Ticks = uint64(ticks)
	rec.EndReason = reason.String
	rec.StartedAt = parseTime(started)
	rec.EndedAt = parseTime(ended)
	return rec, nil
}

// SessionByID retrieves one session. Returns nil if it does not exist.
func (s *Store) SessionByID(id string) (*SessionRecord, error) {
	rec, err := scanSession(s.db.QueryRow("SELECT "+sessionColumns+" FROM sessions s WHERE s.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query session: %w", err)
	}
	return &rec, nil
}

// RecentSessions retrieves the most recently started sessions.
func (s *Store) RecentSessions(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		"SELECT "+sessionColumns+" FROM sessions s ORDER BY s.started_at DESC, s.rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return out, nil
}

// SessionEvents retrieves every event of a session in the order recorded.
func (s *Store) SessionEvents(sessionID string) ([]EventRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, tick, kind, conn, entity, name, reason, created_at
		 FROM session_events
		 WHERE session_id = ?
		 ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var e EventRecord
		var tick int64
		var createdAt any
		if err := rows.Scan(&e.ID, &e.SessionID, &tick, &e.Kind, &e.Conn, &e.Entity, &e.Name, &e.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.Tick = uint64(tick)
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return out, nil
}

// parseTime handles both time.Time and string datetimes from the driver.
func parseTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
