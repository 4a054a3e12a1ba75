// Package storage keeps the run catalog: a small SQLite database indexing
// every ingestion run and the files it pinned, so past runs can be listed
// and inspected without walking the runs directory.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hotelops/recon/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Catalog is the SQLite-backed run index.
type Catalog struct {
	db     *sql.DB
	dbPath string
}

// ErrRunNotFound is returned when a run id is not in the catalog.
var ErrRunNotFound = errors.New("run not found in catalog")

// NewCatalog opens (or creates) the catalog database at dbPath.
func NewCatalog(dbPath string) (*Catalog, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("catalog dbPath cannot be empty")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}

	return &Catalog{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// RunRecord is one cataloged ingestion run.
type RunRecord struct {
	CreatedAt time.Time
	RunID     string
	RunPath   string
	Years     string
	FileCount int
	Files     []RunFile
}

// RunFile is one pinned file within a cataloged run.
type RunFile struct {
	Source     string
	ReportType string
	ReportDate string
	InboxPath  string
	Sha256     string
	SizeBytes  int64
	Year       int
}

func yearsCSV(years []int) string {
	parts := make([]string, 0, len(years))
	for _, y := range years {
		parts = append(parts, fmt.Sprintf("%d", y))
	}
	return strings.Join(parts, ",")
}

// RecordRun stores a finished run and its files. Recording the same run id
// again is a no-op: manifests never change after finalization.
func (c *Catalog) RecordRun(ctx context.Context, manifest *model.Manifest, runPath string) error {
	if manifest == nil || manifest.RunID == "" {
		return errors.New("manifest with run_id is required")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO runs (run_id, run_path, years, file_count)
		VALUES (?, ?, ?, ?)`,
		manifest.RunID, runPath, yearsCSV(manifest.Years), len(manifest.SelectedFiles))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to insert run: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to check run insert: %w", err)
	}
	if inserted == 0 {
		return tx.Rollback()
	}

	for _, f := range manifest.SelectedFiles {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_files (run_id, source, report_type, report_date, year, inbox_path, sha256, size_bytes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			manifest.RunID, f.Source, f.ReportType, f.ReportDate, f.Year, f.InboxPath, f.Sha256, f.SizeBytes); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert run file: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run record: %w", err)
	}
	return nil
}

// ListRuns returns all cataloged runs, newest first, without file detail.
func (c *Catalog) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT run_id, run_path, years, file_count, created_at
		FROM runs
		ORDER BY created_at DESC, run_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.RunPath, &r.Years, &r.FileCount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}

// GetRun returns one run with its pinned files.
func (c *Catalog) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	var r RunRecord
	err := c.db.QueryRowContext(ctx, `
		SELECT run_id, run_path, years, file_count, created_at
		FROM runs WHERE run_id = ?`, runID).
		Scan(&r.RunID, &r.RunPath, &r.Years, &r.FileCount, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT source, report_type, report_date, year, inbox_path, sha256, size_bytes
		FROM run_files WHERE run_id = ?
		ORDER BY source, report_type, year`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var f RunFile
		if err := rows.Scan(&f.Source, &f.ReportType, &f.ReportDate, &f.Year, &f.InboxPath, &f.Sha256, &f.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan run file: %w", err)
		}
		r.Files = append(r.Files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run files: %w", err)
	}
	return &r, nil
}
