// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runlog persists a history of pipeline runs in a local SQLite
// database so past batches can be listed and compared without keeping
// their output directories around.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/creative-engine/pkg/types"
)

const dbFile = "creative-engine.db"

// Store manages the run-ledger SQLite database.
type Store struct {
	db *sql.DB
}

// RunRecord is one ledger row, newest first in listings.
type RunRecord struct {
	ID          int64
	CreatedAt   time.Time
	ProductDesc string
	Provider    string
	Width       int
	Height      int
	Succeeded   int
	Fallback    int
	Failed      int
	ArchivePath string
}

// Open opens or creates the ledger database at dir/creative-engine.db,
// creating the schema if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			product_desc TEXT NOT NULL,
			provider TEXT NOT NULL,
			width INTEGER,
			height INTEGER,
			succeeded INTEGER,
			fallback INTEGER,
			failed INTEGER,
			archive_path TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS creatives (
			filename TEXT NOT NULL,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			concept TEXT NOT NULL,
			seed INTEGER,
			provider TEXT,
			fallback INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_creatives_run_id ON creatives(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record appends a finished run and its creatives to the ledger in one
// transaction.
func (s *Store) Record(ctx context.Context, manifest *types.Manifest, summary types.RunSummary, archivePath string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting ledger transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (created_at, product_desc, provider, width, height, succeeded, fallback, failed, archive_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		manifest.CreatedAt.UTC().Format(time.RFC3339),
		manifest.ProductDesc,
		manifest.Provider,
		manifest.Width,
		manifest.Height,
		summary.Succeeded,
		summary.Fallback,
		summary.Failed,
		archivePath,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading run id: %w", err)
	}

	for _, entry := range manifest.Entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO creatives (filename, run_id, concept, seed, provider, fallback)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			entry.Filename, runID, entry.ConceptID, entry.Seed, entry.Provider, entry.Fallback,
		); err != nil {
			return fmt.Errorf("inserting creative %s: %w", entry.Filename, err)
		}
	}

	return tx.Commit()
}

// List returns up to limit runs, newest first. Limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT id, created_at, product_desc, provider, width, height, succeeded, fallback, failed, archive_path
		FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &createdAt, &rec.ProductDesc, &rec.Provider, &rec.Width, &rec.Height,
			&rec.Succeeded, &rec.Fallback, &rec.Failed, &rec.ArchivePath); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Creatives returns the per-image rows recorded for a run.
func (s *Store) Creatives(ctx context.Context, runID int64) ([]types.ManifestEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, concept, seed, provider, fallback FROM creatives WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying creatives: %w", err)
	}
	defer rows.Close()

	var entries []types.ManifestEntry
	for rows.Next() {
		var e types.ManifestEntry
		if err := rows.Scan(&e.Filename, &e.ConceptID, &e.Seed, &e.Provider, &e.Fallback); err != nil {
			return nil, fmt.Errorf("scanning creative: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
