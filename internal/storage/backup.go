package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// maxBackups is how many pre-migration backups are kept next to the ledger.
const maxBackups = 5

// ErrBackupCorrupted indicates a backup failed its integrity check.
var ErrBackupCorrupted = errors.New("backup integrity check failed")

// BackupDir returns the directory backups of the ledger are written to.
func (s *SQLiteStorage) BackupDir() string {
	return filepath.Join(filepath.Dir(s.dbPath), "backups")
}

// Backup writes a consistent copy of the ledger tagged with label and returns
// its path. In-memory databases cannot be backed up.
func (s *SQLiteStorage) Backup(ctx context.Context, label string) (string, error) {
	if s.dbPath == ":memory:" {
		return "", errors.New("cannot back up an in-memory database")
	}
	if strings.ContainsAny(label, `/\'";`) || strings.Contains(label, "..") {
		return "", fmt.Errorf("invalid backup label %q", label)
	}

	dir := s.BackupDir()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve backup directory: %w", err)
	}
	if strings.ContainsAny(absDir, `'";`) {
		return "", fmt.Errorf("backup directory %q contains forbidden characters", absDir)
	}

	dest := filepath.Join(absDir, fmt.Sprintf("%s-%s.db", label, time.Now().UTC().Format("20060102-150405")))
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("backup %s already exists", dest)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return "", fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	// #nosec G201 - dest is built from validated components above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return "", fmt.Errorf("failed to back up database: %w", err)
	}

	if err := verifyIntegrity(ctx, dest); err != nil {
		_ = os.Remove(dest)
		return "", err
	}

	if err := pruneBackups(absDir, label); err != nil {
		slog.Warn("failed to prune old backups", "error", err)
	}

	return dest, nil
}

func verifyIntegrity(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to check backup integrity: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: %s", ErrBackupCorrupted, result)
	}
	return nil
}

// pruneBackups keeps the newest maxBackups files carrying label.
func pruneBackups(dir, label string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), label+"-") && strings.HasSuffix(e.Name(), ".db") {
			names = append(names, e.Name())
		}
	}

	// Timestamps in the name sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names[min(len(names), maxBackups):] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// PendingMigrations reports how many migrations Migrate would apply.
func (s *SQLiteStorage) PendingMigrations(ctx context.Context) (int, error) {
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return 0, err
	}

	pending := 0
	for _, m := range migrations {
		if m.Version > current {
			pending++
		}
	}
	return pending, nil
}
