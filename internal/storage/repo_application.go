package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Jduquenne/job-lens/internal/record"
	"github.com/Jduquenne/job-lens/internal/schema"
)

type applicationRepository struct {
	db       *sql.DB
	path     string
	logger   *slog.Logger
	migrator *schema.Migrator
}

func (r *applicationRepository) GetAll(ctx context.Context) ([]record.Application, error) {
	apps, _, err := r.GetAllWithReport(ctx)
	return apps, err
}

// GetAllWithReport returns every record at the current schema version.
// Upgraded documents are written back afterwards; that save is best-effort
// and its failure is only reported, the returned records stay authoritative.
func (r *applicationRepository) GetAllWithReport(ctx context.Context) ([]record.Application, ReadReport, error) {
	read, err := r.readAll(ctx)
	if err != nil {
		return nil, read.report, err
	}
	return read.apps, read.report, nil
}

// catalogRead is one migrating pass over the collection. docs keeps every
// decodable row in storage order: migrated when the migrator accepts it,
// as stored otherwise. apps holds the rows that also decode into an
// Application.
type catalogRead struct {
	docs       []record.Document
	apps       []record.Application
	unreadable []ReadFailure
	report     ReadReport
}

func (r *applicationRepository) readAll(ctx context.Context) (catalogRead, error) {
	read := catalogRead{report: ReadReport{CatalogPath: r.path}}

	stored, unreadable, err := r.loadDocuments(ctx)
	if err != nil {
		return read, err
	}
	read.unreadable = unreadable
	read.report.Failures = append(read.report.Failures, unreadable...)

	migrated, changed, migrateFailures := r.migrator.MigrateAll(stored)
	rejected := make(map[int]struct{}, len(migrateFailures))
	for _, failure := range migrateFailures {
		rejected[failure.Index] = struct{}{}
		read.report.Failures = append(read.report.Failures, ReadFailure{ID: failure.ID, Err: failure.Err})
	}
	moved := make(map[int]struct{}, len(changed))
	for _, idx := range changed {
		moved[idx] = struct{}{}
	}

	// Only upgraded documents that callers actually receive are saved back.
	var upgraded []record.Document
	next := 0
	for i, doc := range stored {
		if _, ok := rejected[i]; ok {
			read.docs = append(read.docs, doc)
			continue
		}
		current := migrated[next]
		_, upgradedNow := moved[next]
		next++

		read.docs = append(read.docs, current)
		app, err := record.FromDocument(current)
		if err != nil {
			read.report.Failures = append(read.report.Failures, ReadFailure{ID: current.ID(), Err: err})
			continue
		}
		read.apps = append(read.apps, app)
		if upgradedNow {
			upgraded = append(upgraded, current)
		}
	}

	if len(upgraded) > 0 {
		read.report.Migrated = len(upgraded)
		if err := r.saveMigrated(ctx, upgraded); err != nil {
			read.report.SaveFailed = true
			read.report.SaveErr = err
			r.logger.Warn("persist migrated applications failed", "count", len(upgraded), "error", err)
		} else {
			r.logger.Info("migrated applications", "count", len(upgraded), "schema_version", r.migrator.CurrentVersion())
		}
	}

	for _, failure := range read.report.Failures {
		r.logger.Warn("application skipped on read", "id", failure.ID, "error", failure.Err)
	}
	return read, nil
}

// Get returns the record as stored, without migration.
func (r *applicationRepository) Get(ctx context.Context, id string) (*record.Application, error) {
	doc, err := r.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	app, err := record.FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return &app, nil
}

func (r *applicationRepository) GetDocument(ctx context.Context, id string) (record.Document, error) {
	var raw string
	if err := r.db.QueryRowContext(ctx, `SELECT document FROM applications WHERE id = ?`, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	doc, err := record.DecodeDocument([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("get application %q: %w", id, err)
	}
	return doc, nil
}

// Add inserts a new record. It assigns an id when empty, stamps both
// timestamps and the current schema version, and fills version 2 defaults.
func (r *applicationRepository) Add(ctx context.Context, app *record.Application) error {
	if app == nil {
		return fmt.Errorf("add application: application is nil")
	}

	app.ID = ensureID(app.ID)
	now := nowUTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	app.SchemaVersion = r.migrator.CurrentVersion()
	app.ApplyDefaults()

	doc, err := app.ToDocument()
	if err != nil {
		return fmt.Errorf("add application: %w", err)
	}
	if err := insertDocument(ctx, r.db, doc); err != nil {
		return fmt.Errorf("add application: %w", err)
	}
	return nil
}

// Update upserts by id. UpdatedAt is refreshed; CreatedAt keeps the persisted
// value when the record already exists, and so do stored keys the
// Application type does not map.
func (r *applicationRepository) Update(ctx context.Context, app *record.Application) error {
	if app == nil {
		return fmt.Errorf("update application: application is nil")
	}
	if app.ID == "" {
		return fmt.Errorf("update application: id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update application: begin tx: %w", err)
	}

	var (
		raw      string
		existing record.Document
	)
	err = tx.QueryRowContext(ctx, `SELECT document FROM applications WHERE id = ?`, app.ID).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		_ = tx.Rollback()
		return fmt.Errorf("update application: load existing: %w", err)
	default:
		existing, _ = record.DecodeDocument([]byte(raw))
		if created, ok := persistedCreatedAt(existing); ok {
			app.CreatedAt = created
		}
	}

	app.UpdatedAt = nowUTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = app.UpdatedAt
	}
	if app.UpdatedAt.Before(app.CreatedAt) {
		app.UpdatedAt = app.CreatedAt
	}
	app.SchemaVersion = r.migrator.CurrentVersion()
	app.ApplyDefaults()

	doc, err := app.ToDocument()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update application: %w", err)
	}
	for key, value := range existing.Unknown() {
		if _, ok := doc[key]; !ok {
			doc[key] = value
		}
	}
	if err := upsertDocument(ctx, tx, doc); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update application: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update application: commit: %w", err)
	}
	return nil
}

// Delete removes the record; deleting an unknown id is not an error.
func (r *applicationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}

// ExportAll returns every stored document, upgraded to the current schema
// version where the migrator accepts it. Unlike GetAll it keeps documents
// that do not decode into an Application, and their unmapped keys, so an
// export followed by an import reproduces the collection. A row that is not
// valid JSON fails the export rather than being left out of it.
func (r *applicationRepository) ExportAll(ctx context.Context) ([]record.Document, error) {
	read, err := r.readAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export applications: %w", err)
	}
	if len(read.unreadable) > 0 {
		ids := make([]string, len(read.unreadable))
		for i, failure := range read.unreadable {
			ids[i] = failure.ID
		}
		return nil, fmt.Errorf("export applications: %w: %d unreadable records (%s)",
			ErrInvalidDocument, len(ids), strings.Join(ids, ", "))
	}
	if read.docs == nil {
		return []record.Document{}, nil
	}
	return read.docs, nil
}

// ImportAll clears the collection and inserts docs verbatim, in order. It is
// not atomic: the first failing insert stops the import and leaves the
// records inserted so far in place.
func (r *applicationRepository) ImportAll(ctx context.Context, docs []record.Document) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM applications`); err != nil {
		return fmt.Errorf("import applications: clear: %w", err)
	}
	for i, doc := range docs {
		if err := insertDocument(ctx, r.db, doc); err != nil {
			r.logger.Warn("import stopped", "inserted", i, "total", len(docs), "error", err)
			return fmt.Errorf("import applications: record %d: %w", i, err)
		}
	}
	r.logger.Info("applications imported", "count", len(docs), "atomic", false)
	return nil
}

// ImportAllAtomic behaves like ImportAll inside a single transaction; on any
// failure the previous collection is left untouched.
func (r *applicationRepository) ImportAllAtomic(ctx context.Context, docs []record.Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("import applications: begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM applications`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("import applications: clear: %w", err)
	}
	for i, doc := range docs {
		if err := insertDocument(ctx, tx, doc); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("import applications: record %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("import applications: commit: %w", err)
	}
	r.logger.Info("applications imported", "count", len(docs), "atomic", true)
	return nil
}

func (r *applicationRepository) ClearAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM applications`); err != nil {
		return fmt.Errorf("clear applications: %w", err)
	}
	return nil
}

func (r *applicationRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM applications`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return count, nil
}

func (r *applicationRepository) loadDocuments(ctx context.Context) ([]record.Document, []ReadFailure, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, document FROM applications ORDER BY rowid ASC`)
	if err != nil {
		return nil, nil, fmt.Errorf("get all applications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var (
		docs     []record.Document
		failures []ReadFailure
	)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, nil, fmt.Errorf("get all applications: scan row: %w", err)
		}
		doc, err := record.DecodeDocument([]byte(raw))
		if err != nil {
			failures = append(failures, ReadFailure{ID: id, Err: err})
			continue
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("get all applications: iterate: %w", err)
	}
	return docs, failures, nil
}

// saveMigrated only rewrites rows that still exist, so a record deleted
// between the read and the save is not resurrected.
func (r *applicationRepository) saveMigrated(ctx context.Context, docs []record.Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save migrated: begin tx: %w", err)
	}
	for _, doc := range docs {
		payload, err := doc.Encode()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save migrated: %w", err)
		}
		company, status, date, location := indexColumns(doc)
		if _, err := tx.ExecContext(ctx, `
			UPDATE applications
			SET schema_version = ?, company_name = ?, status = ?, application_date = ?, location = ?, document = ?
			WHERE id = ?
		`, doc.SchemaVersion(), company, status, date, location, string(payload), doc.ID()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("save migrated %q: %w", doc.ID(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save migrated: commit: %w", err)
	}
	return nil
}

func insertDocument(ctx context.Context, ex execer, doc record.Document) error {
	id := doc.ID()
	if id == "" {
		return fmt.Errorf("%w: missing string id", ErrInvalidDocument)
	}
	payload, err := doc.Encode()
	if err != nil {
		return err
	}
	company, status, date, location := indexColumns(doc)
	_, err = ex.ExecContext(ctx, `
		INSERT INTO applications(id, schema_version, company_name, status, application_date, location, document)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`, id, doc.SchemaVersion(), company, status, date, location, string(payload))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateID, id)
		}
		return fmt.Errorf("insert %q: %w", id, err)
	}
	return nil
}

func upsertDocument(ctx context.Context, ex execer, doc record.Document) error {
	payload, err := doc.Encode()
	if err != nil {
		return err
	}
	company, status, date, location := indexColumns(doc)
	_, err = ex.ExecContext(ctx, `
		INSERT INTO applications(id, schema_version, company_name, status, application_date, location, document)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			company_name = excluded.company_name,
			status = excluded.status,
			application_date = excluded.application_date,
			location = excluded.location,
			document = excluded.document
	`, doc.ID(), doc.SchemaVersion(), company, status, date, location, string(payload))
	if err != nil {
		return fmt.Errorf("upsert %q: %w", doc.ID(), err)
	}
	return nil
}

func indexColumns(doc record.Document) (company, status, date, location sql.NullString) {
	return nullableString(doc.String(record.FieldCompanyName)),
		nullableString(doc.String(record.FieldStatus)),
		nullableString(doc.String(record.FieldApplicationDate)),
		nullableString(doc.String(record.FieldLocation))
}

func persistedCreatedAt(doc record.Document) (time.Time, bool) {
	if doc == nil {
		return time.Time{}, false
	}
	created, err := time.Parse(time.RFC3339Nano, doc.String(record.FieldCreatedAt))
	if err != nil {
		return time.Time{}, false
	}
	return created, true
}
