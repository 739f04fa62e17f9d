package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"time"
)

const catalogVersionMetaKey = "catalog_version"

// Migration upgrades the catalog layout. Catalog versions are independent of
// the per-record schemaVersion handled by package schema.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

var defaultMigrations = []Migration{
	{
		Version:     1,
		Description: "create applications collection",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS applications (
				id TEXT PRIMARY KEY,
				schema_version INTEGER NOT NULL DEFAULT 1,
				company_name TEXT,
				status TEXT,
				application_date TEXT,
				location TEXT,
				document TEXT NOT NULL
			)`)
			if err != nil {
				return fmt.Errorf("create applications: %w", err)
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "add application lookup indexes",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE INDEX IF NOT EXISTS idx_applications_company_name ON applications(company_name)`,
				`CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status)`,
				`CREATE INDEX IF NOT EXISTS idx_applications_application_date ON applications(application_date)`,
				`CREATE INDEX IF NOT EXISTS idx_applications_location ON applications(location)`,
			}
			for _, stmt := range statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("create application index: %w", err)
				}
			}
			return nil
		},
	},
}

func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

func CurrentCatalogVersion() int {
	return maxMigrationVersion(defaultMigrations)
}

func RunMigrations(db *sql.DB, migrations []Migration) error {
	if db == nil {
		return fmt.Errorf("run migrations: db is nil")
	}

	if err := ensureMigrationTables(db); err != nil {
		return err
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	current, err := readCatalogVersion(db)
	if err != nil {
		return err
	}

	maxVersion := maxMigrationVersion(ordered)
	if current > maxVersion {
		return fmt.Errorf("%w: db=%d code=%d", ErrCatalogTooNew, current, maxVersion)
	}

	for _, migration := range ordered {
		if migration.Version <= current {
			continue
		}
		if err := applyMigration(db, migration); err != nil {
			return err
		}
	}
	return nil
}

// applyMigration runs one step and bumps catalog_version in the same
// transaction, so a failed step leaves the catalog at the previous version.
func applyMigration(db *sql.DB, m Migration) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin catalog migration v%d: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = m.Up(tx); err != nil {
		return fmt.Errorf("catalog migration v%d (%s): %w", m.Version, m.Description, err)
	}
	if _, err = tx.Exec(`INSERT OR REPLACE INTO schema_migrations(version, applied_at) VALUES (?, ?)`, m.Version, nowUTCString()); err != nil {
		return fmt.Errorf("record catalog migration v%d: %w", m.Version, err)
	}
	if _, err = tx.Exec(`UPDATE catalog_meta SET value = ? WHERE key = ?`, strconv.Itoa(m.Version), catalogVersionMetaKey); err != nil {
		return fmt.Errorf("update catalog version v%d: %w", m.Version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog migration v%d: %w", m.Version, err)
	}
	return nil
}

func ensureMigrationTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS catalog_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)`,
		`INSERT OR IGNORE INTO catalog_meta(key, value) VALUES('` + catalogVersionMetaKey + `', '0')`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure migration tables: %w", err)
		}
	}
	return nil
}

func readCatalogVersion(db *sql.DB) (int, error) {
	var versionStr string
	if err := db.QueryRow(`SELECT value FROM catalog_meta WHERE key = ?`, catalogVersionMetaKey).Scan(&versionStr); err != nil {
		return 0, fmt.Errorf("read catalog version: %w", err)
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return 0, fmt.Errorf("parse catalog version %q: %w", versionStr, err)
	}
	return version, nil
}

func maxMigrationVersion(migrations []Migration) int {
	max := 0
	for _, migration := range migrations {
		if migration.Version > max {
			max = migration.Version
		}
	}
	return max
}

func nowUTCString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
