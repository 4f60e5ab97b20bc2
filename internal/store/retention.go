package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig contains configuration for the retention sweeper.
type RetentionConfig struct {
	// RetentionDays is the number of days to retain runs.
	// 0 means keep runs forever (no sweeping).
	RetentionDays int

	// Schedule is a cron expression for scheduling sweeps.
	// Example: "0 3 * * *" (daily at 3 AM). Empty disables the schedule;
	// Sweep can still be called directly.
	Schedule string

	// CertificatesDir, when set, is also swept: certificate PDFs older
	// than the retention period are removed alongside their runs.
	CertificatesDir string
}

// Sweeper enforces the retention policy on stored runs and generated
// certificates, either on demand or on a cron schedule.
type Sweeper struct {
	store   *SQLiteStore
	config  RetentionConfig
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	running bool
}

// NewSweeper creates a retention sweeper over the given store.
func NewSweeper(store *SQLiteStore, config RetentionConfig, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:  store,
		config: config,
		cron:   cron.New(),
		logger: logger.With("component", "store.retention"),
	}
}

// Sweep runs one retention pass: runs older than the retention period are
// deleted, then certificate files older than the same cutoff are pruned.
// Returns the number of deleted run records.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	if s.config.RetentionDays <= 0 {
		s.logger.Debug("retention disabled, nothing to sweep")
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -s.config.RetentionDays)

	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping runs: %w", err)
	}

	pruned := s.pruneCertificates(cutoff)

	s.logger.Info("retention sweep completed",
		"deleted_runs", deleted,
		"pruned_certificates", pruned,
		"retention_days", s.config.RetentionDays,
	)

	return deleted, nil
}

// pruneCertificates removes certificate PDFs whose modification time is
// before the cutoff. Filesystem errors are logged, not fatal: a failed
// prune retries on the next sweep.
func (s *Sweeper) pruneCertificates(cutoff time.Time) int {
	if s.config.CertificatesDir == "" {
		return 0
	}

	entries, err := os.ReadDir(s.config.CertificatesDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("reading certificates directory failed", "error", err)
		}
		return 0
	}

	pruned := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.config.CertificatesDir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("pruning certificate failed", "path", path, "error", err)
			continue
		}
		pruned++
	}
	return pruned
}

// Start schedules sweeps per the cron expression and returns immediately.
// The schedule stops when ctx is cancelled or Stop is called. An empty
// schedule is a no-op.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Schedule == "" {
		s.logger.Info("retention schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.config.Schedule, err)
	}

	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("scheduled retention sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling retention sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", s.config.Schedule,
		"retention_days", s.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// NextRun returns the next scheduled sweep time, or nil when no sweep is
// scheduled.
func (s *Sweeper) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
