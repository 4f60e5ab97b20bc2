// Package store persists verification-run audit records in SQLite and
// enforces their retention policy. The store is a service-layer collaborator:
// the verification engine itself never touches it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
)

// Config contains configuration for the SQLite run store.
type Config struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Path:         "data/verifications.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements the run store on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config Config
	logger *slog.Logger
}

var _ ports.RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database, applies the pragmas, and ensures the
// schema exists.
func NewSQLiteStore(config Config, logger *slog.Logger) (*SQLiteStore, error) {
	if config.Path == "" {
		config.Path = DefaultConfig().Path
	}
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = DefaultConfig().MaxOpenConns
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = DefaultConfig().MaxIdleConns
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = DefaultConfig().BusyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store.sqlite")

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("opening run store %q: %w", config.Path, err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("run store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up the database schema and pragmas.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("enabling WAL: %w", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("schema version mismatch: expected %d, got %d", SchemaVersion, version)
	}

	return nil
}

// RecordRun persists one completed verification run.
func (s *SQLiteStore) RecordRun(ctx context.Context, run domain.VerificationRun) error {
	const query = `
		INSERT INTO verification_runs (
			id, document,
			overall_compliant, compliance_reason, parameters_checked, compliant_count,
			using_model, model_available,
			duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.Document,
		run.OverallCompliant, run.ComplianceReason, run.ParametersChecked, run.CompliantCount,
		run.UsingModel, run.ModelAvailable,
		run.Duration.Milliseconds(), run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run %q: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]domain.VerificationRun, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, document,
		       overall_compliant, compliance_reason, parameters_checked, compliant_count,
		       using_model, model_available,
		       duration_ms, created_at
		FROM verification_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.VerificationRun, 0, limit)
	for rows.Next() {
		var run domain.VerificationRun
		var durationMs int64
		if err := rows.Scan(
			&run.ID, &run.Document,
			&run.OverallCompliant, &run.ComplianceReason, &run.ParametersChecked, &run.CompliantCount,
			&run.UsingModel, &run.ModelAvailable,
			&durationMs, &run.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteOlderThan removes runs created before the cutoff and returns the
// number deleted.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM verification_runs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting old runs: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted runs: %w", err)
	}
	return deleted, nil
}

// Count returns the total number of stored runs.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM verification_runs").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting runs: %w", err)
	}
	return count, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
