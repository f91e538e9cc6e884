package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"coachly/internal/logging"

	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the authoritative store for appointments and published
// coach availabilities.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	dbLogger := logging.Component(logger, "database")
	dbLogger.Info().Str("path", path).Msg("database initialized")

	return &DB{DB: db, logger: dbLogger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS appointments (
            id TEXT PRIMARY KEY,
            coach_id TEXT NOT NULL,
            coach_name TEXT NOT NULL,
            talent_id TEXT NOT NULL,
            talent_name TEXT NOT NULL,
            talent_email TEXT NOT NULL,
            date TEXT NOT NULL,
            time TEXT NOT NULL,
            duration INTEGER NOT NULL,
            type TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            notes TEXT,
            google_event_id TEXT,
            meet_link TEXT,
            calendar_link TEXT,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS coach_availabilities (
            key TEXT PRIMARY KEY,
            coach_id TEXT NOT NULL,
            date TEXT NOT NULL,
            time_slots TEXT NOT NULL,
            timezone TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_appointments_coach_date ON appointments(coach_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_talent ON appointments(talent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_availabilities_coach ON coach_availabilities(coach_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
