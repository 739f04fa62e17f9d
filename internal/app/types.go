package app

import (
	"errors"

	"github.com/Jduquenne/job-lens/internal/record"
	"github.com/Jduquenne/job-lens/internal/storage"
)

var (
	ErrValidation    = errors.New("app: validation failed")
	ErrDuplicateID   = errors.New("app: duplicate id")
	ErrInvalidImport = errors.New("app: invalid import file")
)

// DateLayout is the calendar-date format of applicationDate.
const DateLayout = "2006-01-02"

type CreateApplicationRequest struct {
	ID              string
	CompanyName     string
	JobTitle        string
	Location        string
	ContactEmail    string
	JobLink         string
	ApplicationDate string
	Status          record.Status
	Notes           string
	AttachmentName  string
	Salary          string
	ContractType    record.ContractType
	Remote          record.Remote
	TechStack       []string
	Priority        record.Priority
	Archived        bool
	Source          record.Source
}

// UpdateApplicationRequest is a patch: nil fields are left unchanged.
type UpdateApplicationRequest struct {
	ID              string
	CompanyName     *string
	JobTitle        *string
	Location        *string
	ContactEmail    *string
	JobLink         *string
	ApplicationDate *string
	Status          *record.Status
	Notes           *string
	AttachmentName  *string
	Salary          *string
	ContractType    *record.ContractType
	Remote          *record.Remote
	TechStack       *[]string
	Priority        *record.Priority
	Archived        *bool
	Source          *record.Source
}

type ListResult struct {
	Applications []record.Application
	Report       storage.ReadReport
}

type ExportRequest struct {
	// OutputPath wins over Directory when both are set.
	OutputPath string
	Directory  string
}

type ExportResult struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

type ImportRequest struct {
	InputPath string
	Atomic    bool
}

type ImportResult struct {
	Path     string `json:"path"`
	Imported int    `json:"imported"`
	Atomic   bool   `json:"atomic"`
}
