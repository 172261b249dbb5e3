package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const backupPrefix = "backup_"

// Backup writes a consistent copy of the database to dest.
func (db *DB) Backup(ctx context.Context, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	return nil
}

// CleanupBackups removes backup files in dir older than retention and
// returns how many were deleted.
func CleanupBackups(dir string, retention time.Duration, now time.Time) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read backup directory: %w", err)
	}

	cutoff := now.Add(-retention)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
			}
			removed++
		}
	}
	return removed, nil
}

// BackupOptions configures the periodic backup job.
type BackupOptions struct {
	Dir       string
	Interval  time.Duration
	Retention time.Duration
}

// BackupService periodically snapshots the database.
type BackupService struct {
	db     *DB
	opts   BackupOptions
	logger *zerolog.Logger
	now    func() time.Time
}

// NewBackupService creates a backup job. A zero interval means daily.
func NewBackupService(db *DB, opts BackupOptions, logger *zerolog.Logger) *BackupService {
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}
	return &BackupService{db: db, opts: opts, logger: logger, now: time.Now}
}

// Run takes a backup immediately and then every interval until ctx ends.
func (s *BackupService) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.opts.Interval).Str("dir", s.opts.Dir).Msg("Backup service started")

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *BackupService) runOnce(ctx context.Context) {
	path, err := s.PerformBackup(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Backup failed")
		return
	}
	s.logger.Info().Str("path", path).Msg("Backup completed")

	removed, err := CleanupBackups(s.opts.Dir, s.opts.Retention, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Backup cleanup failed")
		return
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Old backups deleted")
	}
}

// PerformBackup writes one timestamped backup and returns its path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	name := fmt.Sprintf("%s%s.db", backupPrefix, s.now().Format("20060102_150405"))
	path := filepath.Join(s.opts.Dir, name)
	if err := s.db.Backup(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}
