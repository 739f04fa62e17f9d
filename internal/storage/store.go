package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Jduquenne/job-lens/internal/schema"
	_ "modernc.org/sqlite"
)

const (
	pragmaJournalModeWAL = `PRAGMA journal_mode=WAL`
	pragmaBusyTimeout    = `PRAGMA busy_timeout=5000`

	// Applied per connection through the DSN so pooled connections agree.
	dsnPragmas = `?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)`
)

type Options struct {
	// Path overrides the catalog location derived from DataDir and Environment.
	Path        string
	DataDir     string
	Environment Environment
	Logger      *slog.Logger
	Migrator    *schema.Migrator
}

type Store struct {
	db     *sql.DB
	path   string
	env    Environment
	logger *slog.Logger

	Applications ApplicationRepository
}

// Open opens the catalog, creating it and running catalog migrations when
// needed. Every other store operation requires a successful Open.
func Open(opts Options) (*Store, error) {
	path, err := resolveCatalogPath(opts)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("open storage: create parent dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)

	if err := configureSQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := RunMigrations(db, DefaultMigrations()); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := ensureDBPermissions(path); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	migrator := opts.Migrator
	if migrator == nil {
		migrator = schema.Default()
	}

	store := &Store{
		db:     db,
		path:   path,
		env:    opts.Environment,
		logger: logger,
	}
	store.Applications = &applicationRepository{
		db:       db,
		path:     path,
		logger:   logger.With("component", "storage", "catalog", filepath.Base(path)),
		migrator: migrator,
	}
	logger.Debug("catalog opened", "path", path, "environment", string(opts.Environment), "catalog_version", CurrentCatalogVersion())
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) Environment() Environment {
	if s == nil {
		return ""
	}
	return s.env
}

func resolveCatalogPath(opts Options) (string, error) {
	if opts.Path != "" {
		return filepath.Clean(opts.Path), nil
	}
	if opts.DataDir == "" {
		return "", fmt.Errorf("empty data directory")
	}
	name, err := CatalogName(opts.Environment)
	if err != nil {
		return "", err
	}
	return filepath.Join(opts.DataDir, name), nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{pragmaJournalModeWAL, pragmaBusyTimeout}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("configure sqlite %q: %w", stmt, err)
		}
	}
	return nil
}

func ensureDBPermissions(path string) error {
	if err := os.Chmod(path, 0o600); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("set db file permissions: %w", err)
		}
	}

	walPath := path + "-wal"
	if err := os.Chmod(walPath, 0o600); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("set wal file permissions: %w", err)
		}
	}
	return nil
}
