package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_SweepDeletesExpiredRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.RecordRun(ctx, testRun("expired", now.AddDate(0, 0, -10), true)))
	require.NoError(t, s.RecordRun(ctx, testRun("kept", now, true)))

	sweeper := NewSweeper(s, RetentionConfig{RetentionDays: 7}, nil)
	deleted, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "kept", runs[0].ID)
}

func TestSweeper_ZeroRetentionKeepsEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, testRun("ancient", time.Now().UTC().AddDate(-1, 0, 0), true)))

	sweeper := NewSweeper(s, RetentionConfig{RetentionDays: 0}, nil)
	deleted, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSweeper_PrunesOldCertificates(t *testing.T) {
	s := newTestStore(t)
	certsDir := t.TempDir()

	oldCert := filepath.Join(certsDir, "old_Certificate_20240101.pdf")
	require.NoError(t, os.WriteFile(oldCert, []byte("%PDF-1.4"), 0o644))
	oldTime := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(oldCert, oldTime, oldTime))

	freshCert := filepath.Join(certsDir, "fresh_Certificate_20260829.pdf")
	require.NoError(t, os.WriteFile(freshCert, []byte("%PDF-1.4"), 0o644))

	// Non-PDF files are never touched.
	note := filepath.Join(certsDir, "README.txt")
	require.NoError(t, os.WriteFile(note, []byte("not a certificate"), 0o644))
	require.NoError(t, os.Chtimes(note, oldTime, oldTime))

	sweeper := NewSweeper(s, RetentionConfig{
		RetentionDays:   7,
		CertificatesDir: certsDir,
	}, nil)

	_, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)

	assert.NoFileExists(t, oldCert)
	assert.FileExists(t, freshCert)
	assert.FileExists(t, note)
}

func TestSweeper_StartRejectsInvalidSchedule(t *testing.T) {
	s := newTestStore(t)
	sweeper := NewSweeper(s, RetentionConfig{
		RetentionDays: 7,
		Schedule:      "not a cron spec",
	}, nil)

	err := sweeper.Start(context.Background())
	assert.Error(t, err)
}

func TestSweeper_StartWithoutScheduleIsNoop(t *testing.T) {
	s := newTestStore(t)
	sweeper := NewSweeper(s, RetentionConfig{RetentionDays: 7}, nil)

	require.NoError(t, sweeper.Start(context.Background()))
	assert.Nil(t, sweeper.NextRun())
}

func TestSweeper_ScheduledSweepRegistered(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := NewSweeper(s, RetentionConfig{
		RetentionDays: 7,
		Schedule:      "0 3 * * *",
	}, nil)

	require.NoError(t, sweeper.Start(ctx))
	next := sweeper.NextRun()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))

	sweeper.Stop()
}
