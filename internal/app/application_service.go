package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/Jduquenne/job-lens/internal/record"
	"github.com/Jduquenne/job-lens/internal/schema"
	"github.com/Jduquenne/job-lens/internal/storage"
)

type ApplicationService struct {
	apps     storage.ApplicationRepository
	migrator *schema.Migrator
	now      func() time.Time
}

func NewApplicationService(apps storage.ApplicationRepository, migrator *schema.Migrator) *ApplicationService {
	if migrator == nil {
		migrator = schema.Default()
	}
	return &ApplicationService{
		apps:     apps,
		migrator: migrator,
		now:      time.Now,
	}
}

func (s *ApplicationService) Create(ctx context.Context, req CreateApplicationRequest) (*record.Application, error) {
	app := record.Application{
		ID:              strings.TrimSpace(req.ID),
		CompanyName:     strings.TrimSpace(req.CompanyName),
		JobTitle:        strings.TrimSpace(req.JobTitle),
		Location:        strings.TrimSpace(req.Location),
		ContactEmail:    strings.TrimSpace(req.ContactEmail),
		JobLink:         strings.TrimSpace(req.JobLink),
		ApplicationDate: strings.TrimSpace(req.ApplicationDate),
		Status:          req.Status,
		Notes:           req.Notes,
		AttachmentName:  strings.TrimSpace(req.AttachmentName),
		Salary:          strings.TrimSpace(req.Salary),
		ContractType:    req.ContractType,
		Remote:          req.Remote,
		TechStack:       normalizeTags(req.TechStack),
		Priority:        req.Priority,
		Archived:        req.Archived,
		Source:          req.Source,
	}
	if app.ApplicationDate == "" {
		app.ApplicationDate = s.now().Format(DateLayout)
	}
	if app.Status == "" {
		app.Status = record.StatusToSend
	}
	if app.ContractType == "" {
		app.ContractType = record.ContractCDI
	}

	if err := requireText("company name", app.CompanyName); err != nil {
		return nil, err
	}
	if err := requireText("job title", app.JobTitle); err != nil {
		return nil, err
	}
	if err := requireText("location", app.Location); err != nil {
		return nil, err
	}
	if err := validateFields(app); err != nil {
		return nil, err
	}

	if err := s.apps.Add(ctx, &app); err != nil {
		if errors.Is(err, storage.ErrDuplicateID) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, app.ID)
		}
		return nil, fmt.Errorf("create application: %w", err)
	}
	return &app, nil
}

// Show returns the record upgraded to the current schema version. The stored
// copy is not rewritten; that happens on the next full read.
func (s *ApplicationService) Show(ctx context.Context, id string) (*record.Application, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: application id is required", ErrValidation)
	}

	doc, err := s.apps.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("show application: %w", err)
	}
	migrated, err := s.migrator.Migrate(doc)
	if err != nil {
		return nil, fmt.Errorf("show application: %w", err)
	}
	app, err := record.FromDocument(migrated)
	if err != nil {
		return nil, fmt.Errorf("show application: %w", err)
	}
	return &app, nil
}

// Edit applies a patch. Only patched fields are validated so legacy records
// with incomplete data stay editable.
func (s *ApplicationService) Edit(ctx context.Context, req UpdateApplicationRequest) (*record.Application, error) {
	app, err := s.Show(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.CompanyName != nil {
		app.CompanyName = strings.TrimSpace(*req.CompanyName)
		if err := requireText("company name", app.CompanyName); err != nil {
			return nil, err
		}
	}
	if req.JobTitle != nil {
		app.JobTitle = strings.TrimSpace(*req.JobTitle)
		if err := requireText("job title", app.JobTitle); err != nil {
			return nil, err
		}
	}
	if req.Location != nil {
		app.Location = strings.TrimSpace(*req.Location)
		if err := requireText("location", app.Location); err != nil {
			return nil, err
		}
	}

	patch := record.Application{}
	if req.ContactEmail != nil {
		app.ContactEmail = strings.TrimSpace(*req.ContactEmail)
		patch.ContactEmail = app.ContactEmail
	}
	if req.JobLink != nil {
		app.JobLink = strings.TrimSpace(*req.JobLink)
		patch.JobLink = app.JobLink
	}
	if req.ApplicationDate != nil {
		app.ApplicationDate = strings.TrimSpace(*req.ApplicationDate)
		if err := requireText("application date", app.ApplicationDate); err != nil {
			return nil, err
		}
		patch.ApplicationDate = app.ApplicationDate
	}
	if req.Status != nil {
		app.Status = *req.Status
		patch.Status = app.Status
	}
	if req.Notes != nil {
		app.Notes = *req.Notes
	}
	if req.AttachmentName != nil {
		app.AttachmentName = strings.TrimSpace(*req.AttachmentName)
	}
	if req.Salary != nil {
		app.Salary = strings.TrimSpace(*req.Salary)
	}
	if req.ContractType != nil {
		app.ContractType = *req.ContractType
		patch.ContractType = app.ContractType
	}
	if req.Remote != nil {
		app.Remote = *req.Remote
		patch.Remote = app.Remote
	}
	if req.TechStack != nil {
		app.TechStack = normalizeTags(*req.TechStack)
	}
	if req.Priority != nil {
		app.Priority = *req.Priority
		patch.Priority = app.Priority
	}
	if req.Archived != nil {
		app.Archived = *req.Archived
	}
	if req.Source != nil {
		app.Source = *req.Source
		patch.Source = app.Source
	}

	if err := validateFields(patch); err != nil {
		return nil, err
	}

	if err := s.apps.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("edit application: %w", err)
	}
	return app, nil
}

// Delete removes a record and reports storage.ErrNotFound for unknown ids.
func (s *ApplicationService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: application id is required", ErrValidation)
	}
	if _, err := s.apps.GetDocument(ctx, id); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if err := s.apps.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}

// List returns matching records, most recent application first.
func (s *ApplicationService) List(ctx context.Context, filter record.Filter) (ListResult, error) {
	apps, report, err := s.apps.GetAllWithReport(ctx)
	if err != nil {
		return ListResult{}, fmt.Errorf("list applications: %w", err)
	}
	out := filter.Apply(apps)
	record.SortByApplicationDateDesc(out)
	return ListResult{Applications: out, Report: report}, nil
}

func (s *ApplicationService) Stats(ctx context.Context, filter record.Filter) (record.Stats, error) {
	result, err := s.List(ctx, filter)
	if err != nil {
		return record.Stats{}, err
	}
	return record.ComputeStats(result.Applications), nil
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	return nil
}

// validateFields checks the non-empty fields of app.
func validateFields(app record.Application) error {
	if app.ApplicationDate != "" {
		if _, err := time.Parse(DateLayout, app.ApplicationDate); err != nil {
			return fmt.Errorf("%w: application date %q must be YYYY-MM-DD", ErrValidation, app.ApplicationDate)
		}
	}
	if app.ContactEmail != "" {
		if _, err := mail.ParseAddress(app.ContactEmail); err != nil {
			return fmt.Errorf("%w: contact email %q is invalid", ErrValidation, app.ContactEmail)
		}
	}
	if app.JobLink != "" {
		parsed, err := url.ParseRequestURI(app.JobLink)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("%w: job link %q must be an http(s) URL", ErrValidation, app.JobLink)
		}
	}
	if app.Status != "" && !app.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, app.Status)
	}
	if app.ContractType != "" && !app.ContractType.Valid() {
		return fmt.Errorf("%w: unknown contract type %q", ErrValidation, app.ContractType)
	}
	if app.Remote != "" && !app.Remote.Valid() {
		return fmt.Errorf("%w: unknown remote mode %q", ErrValidation, app.Remote)
	}
	if app.Priority != "" && !app.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, app.Priority)
	}
	if app.Source != "" && !app.Source.Valid() {
		return fmt.Errorf("%w: unknown source %q", ErrValidation, app.Source)
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
