package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/mailnote/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// RecordExport inserts one export history row, generating an id when the
// record carries none.
func (s *SQLiteStore) RecordExport(
	ctx context.Context, rec model.ExportRecord,
) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exports (id, run_id, mail_id, subject, note_id, error, exported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.MailID, rec.Subject,
		rec.NoteID, rec.Error, rec.ExportedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording export for mail %s: %w", rec.MailID, err)
	}
	return nil
}

// RecentExports returns the newest history rows, most recent first.
func (s *SQLiteStore) RecentExports(
	ctx context.Context, limit int,
) ([]model.ExportRecord, error) {
	if limit < 1 {
		limit = 20
	}

	var records []model.ExportRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT id, run_id, mail_id, subject, note_id, error, exported_at
		 FROM exports ORDER BY exported_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying export history: %w", err)
	}
	return records, nil
}
