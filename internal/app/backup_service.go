package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Jduquenne/job-lens/internal/record"
	"github.com/Jduquenne/job-lens/internal/storage"
)

const (
	exportFilePrefix = "job-lens-backup-"

	// maxImportFileSize caps import reads to 64 MiB.
	maxImportFileSize = 64 << 20
)

type BackupService struct {
	apps storage.ApplicationRepository
	now  func() time.Time
}

func NewBackupService(apps storage.ApplicationRepository) *BackupService {
	return &BackupService{apps: apps, now: time.Now}
}

// ExportFileName is the default export file name for the given day.
func ExportFileName(day time.Time) string {
	return exportFilePrefix + day.Format(DateLayout) + ".json"
}

func (s *BackupService) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if s == nil || s.apps == nil {
		return nil, fmt.Errorf("export: store is nil")
	}

	path := strings.TrimSpace(req.OutputPath)
	if path == "" {
		dir := strings.TrimSpace(req.Directory)
		if dir == "" {
			dir = "."
		}
		path = filepath.Join(dir, ExportFileName(s.now()))
	}

	payload, count, err := s.encodeExport(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("export: create output directory: %w", err)
	}
	if err := writeFileAtomic(path, payload, 0o600); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return &ExportResult{Path: path, Count: count}, nil
}

// WriteExport writes the export payload to w instead of a file.
func (s *BackupService) WriteExport(ctx context.Context, w io.Writer) (int, error) {
	payload, count, err := s.encodeExport(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(payload); err != nil {
		return 0, fmt.Errorf("export: write: %w", err)
	}
	return count, nil
}

// encodeExport serializes the stored documents themselves, so fields and
// records the Application type cannot represent survive the round trip.
func (s *BackupService) encodeExport(ctx context.Context) ([]byte, int, error) {
	docs, err := s.apps.ExportAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("export: %w", err)
	}
	if docs == nil {
		docs = []record.Document{}
	}
	payload, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return nil, 0, fmt.Errorf("export: encode: %w", err)
	}
	return append(payload, '\n'), len(docs), nil
}

// Import replaces the collection with the file's records. The file is fully
// parsed first; a malformed file never touches the store.
func (s *BackupService) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	path := strings.TrimSpace(req.InputPath)
	if path == "" {
		return nil, fmt.Errorf("%w: input path is required", ErrValidation)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("import: open %q: %w", path, err)
	}
	defer f.Close()

	result, err := s.ImportFrom(ctx, f, req.Atomic)
	if err != nil {
		return nil, err
	}
	result.Path = path
	return result, nil
}

func (s *BackupService) ImportFrom(ctx context.Context, r io.Reader, atomic bool) (*ImportResult, error) {
	if s == nil || s.apps == nil {
		return nil, fmt.Errorf("import: store is nil")
	}

	data, err := io.ReadAll(io.LimitReader(r, maxImportFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("import: read: %w", err)
	}
	if len(data) > maxImportFileSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidImport, maxImportFileSize)
	}

	docs, err := record.DecodeDocuments(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
	}

	if atomic {
		err = s.apps.ImportAllAtomic(ctx, docs)
	} else {
		err = s.apps.ImportAll(ctx, docs)
	}
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return &ImportResult{Imported: len(docs), Atomic: atomic}, nil
}

func (s *BackupService) Clear(ctx context.Context) error {
	if err := s.apps.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %q: %w", path, err)
	}
	return nil
}
