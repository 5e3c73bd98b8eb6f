package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/rgwscan/internal/model"
)

// FileName is the database file name inside the database directory.
const FileName = "rgwscan.db"

// timeLayout is a fixed-width UTC layout so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RunDB provides SQLite-based storage for crawl runs.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		log_count INTEGER DEFAULT 0,
		failed_logs INTEGER DEFAULT 0,
		record_count INTEGER DEFAULT 0,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS log_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		hash TEXT,
		size INTEGER,
		lines INTEGER,
		records INTEGER,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_logs_run ON log_files(run_id);
	CREATE INDEX IF NOT EXISTS idx_logs_hash ON log_files(hash);

	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		category TEXT,
		command TEXT NOT NULL,
		output TEXT NOT NULL,
		ceph_version TEXT,
		source TEXT,
		line INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id);
	CREATE INDEX IF NOT EXISTS idx_records_category ON records(category);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunSummary is the list view of a stored run.
type RunSummary struct {
	ID          string
	BaseURL     string
	StartedAt   time.Time
	FinishedAt  time.Time
	LogCount    int
	FailedLogs  int
	RecordCount int
	Error       string
}

// StoredRecord is a record row.
type StoredRecord struct {
	ID          int64
	RunID       string
	Category    string
	Command     string
	Output      json.RawMessage
	CephVersion string
	Source      string
	Line        int
}

// SaveRun stores report, its log results and its records in one transaction.
// Saving the same run ID twice replaces the earlier copy.
func (rdb *RunDB) SaveRun(ctx context.Context, report *model.RunReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	for _, table := range []string{"records", "log_files"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", report.ID); err != nil { //nolint:gosec // table names are constants
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, base_url, started_at, finished_at, log_count, failed_logs, record_count, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		base_url = excluded.base_url,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at,
		log_count = excluded.log_count,
		failed_logs = excluded.failed_logs,
		record_count = excluded.record_count,
		error = excluded.error,
		report_json = excluded.report_json
	`,
		report.ID,
		report.BaseURL,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		len(report.Logs),
		report.FailedLogs(),
		len(report.Records),
		report.Error,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for _, l := range report.Logs {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO log_files (run_id, url, hash, size, lines, records, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		`, report.ID, l.URL, l.Hash, l.Size, l.Lines, l.Stats.Records, l.Error)
		if err != nil {
			return fmt.Errorf("failed to save log file %s: %w", l.URL, err)
		}
	}

	for _, r := range report.Records {
		category, _ := r.Category()
		_, err := tx.ExecContext(ctx, `
		INSERT INTO records (run_id, category, command, output, ceph_version, source, line)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		`, report.ID, category, r.Command, string(r.Output), r.CephVersion, r.Source, r.Line)
		if err != nil {
			return fmt.Errorf("failed to save record %q: %w", r.Command, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns stored runs, newest first. A limit of 0 or less returns all runs.
func (rdb *RunDB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, base_url, started_at, finished_at, log_count, failed_logs, record_count, error
	FROM runs
	ORDER BY started_at DESC
	`
	args := make([]interface{}, 0)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var s RunSummary
		var started string
		var finished, runErr sql.NullString

		if err := rows.Scan(&s.ID, &s.BaseURL, &started, &finished, &s.LogCount, &s.FailedLogs, &s.RecordCount, &runErr); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		s.StartedAt = parseTimestamp(started)
		s.FinishedAt = parseTimestamp(finished.String)
		s.Error = runErr.String
		results = append(results, s)
	}

	return results, rows.Err()
}

// GetRun retrieves the full report of a run. It returns nil, nil when the
// run does not exist.
func (rdb *RunDB) GetRun(ctx context.Context, id string) (*model.RunReport, error) {
	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, "SELECT report_json FROM runs WHERE id = ?", id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListRecords returns the records of a run, optionally filtered by category.
func (rdb *RunDB) ListRecords(ctx context.Context, runID, category string) ([]StoredRecord, error) {
	query := `
	SELECT id, run_id, category, command, output, ceph_version, source, line
	FROM records
	WHERE run_id = ?
	`
	args := []interface{}{runID}

	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY id"

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var results []StoredRecord
	for rows.Next() {
		var r StoredRecord
		var output string
		var cat, version, source sql.NullString

		if err := rows.Scan(&r.ID, &r.RunID, &cat, &r.Command, &output, &version, &source, &r.Line); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		r.Category = cat.String
		r.Output = json.RawMessage(output)
		r.CephVersion = version.String
		r.Source = source.String
		results = append(results, r)
	}

	return results, rows.Err()
}

// formatTimestamp renders t in timeLayout. The zero time is stored as "".
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
