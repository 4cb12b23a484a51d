// Package store persists script sources and a journal of runs in SQLite.
package store

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"

	"github.com/antibyte/kscr/pkg/logger"
)

// ErrScriptNotFound is returned by LoadScript for unknown names.
var ErrScriptNotFound = errors.New("script not found")

// Store is a wrapper around the SQLite database connection
type Store struct {
	conn *sql.DB
}

// Script is a stored source text.
type Script struct {
	Name      string
	Source    []byte
	Hash      string
	UpdatedAt time.Time
}

// RunRecord is one journal entry.
type RunRecord struct {
	ID         string
	ScriptName string
	SourceHash string
	ExitCode   int
	Error      string
	Duration   time.Duration
	StartedAt  time.Time
}

// InitDB opens the SQLite database and checks that it is reachable.
func InitDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Open opens the database at dbPath and creates missing tables.
func Open(dbPath string) (*Store, error) {
	db, err := InitDB(dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := CreateTables(db); err != nil {
		db.Close()
		return nil, err
	}
	logger.StoreInfo("Opened script store %s", dbPath)
	return &Store{conn: db}, nil
}

// CreateTables ensures all required tables exist in the database.
func CreateTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS scripts (
			name TEXT PRIMARY KEY,
			source BLOB NOT NULL,
			hash TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			script_name TEXT,
			source_hash TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			error TEXT,
			duration_us INTEGER NOT NULL,
			started_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// HashSource returns the hex blake2b-256 digest of src.
func HashSource(src []byte) string {
	sum := blake2b.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// SaveScript inserts or replaces the script name.
func (s *Store) SaveScript(name string, src []byte) (string, error) {
	if name == "" {
		return "", fmt.Errorf("script name must not be empty")
	}
	hash := HashSource(src)
	_, err := s.conn.Exec(
		`INSERT INTO scripts (name, source, hash, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET source = excluded.source, hash = excluded.hash, updated_at = excluded.updated_at`,
		name, src, hash, time.Now().UnixNano())
	if err != nil {
		logger.StoreError("Failed to save script %s: %v", name, err)
		return "", fmt.Errorf("failed to save script %s: %w", name, err)
	}
	logger.StoreDebug("Saved script %s (%s)", name, hash[:12])
	return hash, nil
}

// LoadScript returns the stored script or ErrScriptNotFound.
func (s *Store) LoadScript(name string) (*Script, error) {
	var sc Script
	var updated int64
	err := s.conn.QueryRow(`SELECT name, source, hash, updated_at FROM scripts WHERE name = ?`, name).
		Scan(&sc.Name, &sc.Source, &sc.Hash, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load script %s: %w", name, err)
	}
	sc.UpdatedAt = time.Unix(0, updated)
	return &sc, nil
}

// ListScripts returns all script names in alphabetical order.
func (s *Store) ListScripts() ([]string, error) {
	rows, err := s.conn.Query(`SELECT name FROM scripts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// RecordRun appends rec to the journal. An empty ID is replaced by a new
// UUID, which is returned.
func (s *Store) RecordRun(rec RunRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	_, err := s.conn.Exec(
		`INSERT INTO runs (id, script_name, source_hash, exit_code, error, duration_us, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ScriptName, rec.SourceHash, rec.ExitCode, rec.Error,
		rec.Duration.Microseconds(), rec.StartedAt.UnixNano())
	if err != nil {
		logger.StoreError("Failed to record run %s: %v", rec.ID, err)
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return rec.ID, nil
}

// RecentRuns returns up to limit journal entries, newest first.
func (s *Store) RecentRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.Query(
		`SELECT id, COALESCE(script_name, ''), source_hash, exit_code, COALESCE(error, ''), duration_us, started_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var durationUS, started int64
		if err := rows.Scan(&rec.ID, &rec.ScriptName, &rec.SourceHash, &rec.ExitCode, &rec.Error, &durationUS, &started); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durationUS) * time.Microsecond
		rec.StartedAt = time.Unix(0, started)
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}
