package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jduquenne/job-lens/internal/record"
)

var (
	ErrNotFound        = errors.New("storage: not found")
	ErrDuplicateID     = errors.New("storage: duplicate id")
	ErrCatalogTooNew   = errors.New("storage: catalog version newer than code")
	ErrInvalidDocument = record.ErrInvalidDocument
)

// Environment selects which catalog a process works against. The choice only
// isolates data between environments; record semantics are identical.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

func ParseEnvironment(raw string) (Environment, error) {
	switch Environment(raw) {
	case EnvDevelopment, EnvProduction:
		return Environment(raw), nil
	case "dev":
		return EnvDevelopment, nil
	case "prod":
		return EnvProduction, nil
	}
	return "", fmt.Errorf("unknown environment %q (want development or production)", raw)
}

// CatalogName is the file name of the catalog for env.
func CatalogName(env Environment) (string, error) {
	switch env {
	case EnvDevelopment:
		return "joblens-dev.db", nil
	case EnvProduction:
		return "joblens-prod.db", nil
	}
	return "", fmt.Errorf("catalog name: unknown environment %q", env)
}

// ReadFailure is a stored document that could not be returned to callers.
type ReadFailure struct {
	ID  string
	Err error
}

// ReadReport describes what happened during a migrating read.
type ReadReport struct {
	Migrated    int
	SaveFailed  bool
	SaveErr     error
	Failures    []ReadFailure
	CatalogPath string
}

type ApplicationRepository interface {
	GetAll(ctx context.Context) ([]record.Application, error)
	GetAllWithReport(ctx context.Context) ([]record.Application, ReadReport, error)
	Get(ctx context.Context, id string) (*record.Application, error)
	GetDocument(ctx context.Context, id string) (record.Document, error)
	Add(ctx context.Context, app *record.Application) error
	Update(ctx context.Context, app *record.Application) error
	Delete(ctx context.Context, id string) error
	ExportAll(ctx context.Context) ([]record.Document, error)
	ImportAll(ctx context.Context, docs []record.Document) error
	ImportAllAtomic(ctx context.Context, docs []record.Document) error
	ClearAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
