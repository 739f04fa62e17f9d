package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// CurrentSchemaVersion is the shape every record handed to callers must have.
const CurrentSchemaVersion = 2

// Defaults introduced by schema version 2.
const (
	DefaultPriority = PriorityMedium
	DefaultSource   = SourceManual
	DefaultRemote   = RemoteUnknown
)

// Application is a single job-application entry. JSON field names match the
// export file format.
type Application struct {
	ID            string    `json:"id"`
	SchemaVersion int       `json:"schemaVersion"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	CompanyName     string `json:"companyName"`
	JobTitle        string `json:"jobTitle"`
	Location        string `json:"location"`
	ContactEmail    string `json:"contactEmail"`
	JobLink         string `json:"jobLink"`
	ApplicationDate string `json:"applicationDate"`
	Status          Status `json:"status"`
	Notes           string `json:"notes"`

	AttachmentName string       `json:"attachmentName,omitempty"`
	Salary         string       `json:"salary,omitempty"`
	ContractType   ContractType `json:"contractType,omitempty"`
	Remote         Remote       `json:"remote"`
	TechStack      []string     `json:"techStack"`

	Priority Priority `json:"priority"`
	Archived bool     `json:"archived"`
	Source   Source   `json:"source"`

	// Extra holds document keys this type does not map, so a record read
	// and written back keeps them.
	Extra map[string]any `json:"-"`
}

// ApplyDefaults fills the fields introduced at schema version 2 when they are
// empty. Values already set are kept.
func (a *Application) ApplyDefaults() {
	if a.Priority == "" {
		a.Priority = DefaultPriority
	}
	if a.Source == "" {
		a.Source = DefaultSource
	}
	if a.Remote == "" {
		a.Remote = DefaultRemote
	}
	if a.TechStack == nil {
		a.TechStack = []string{}
	}
}

// ToDocument converts the record to its raw stored form.
func (a Application) ToDocument() (Document, error) {
	if a.TechStack == nil {
		a.TechStack = []string{}
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode application %q: %w", a.ID, err)
	}
	doc, err := DecodeDocument(payload)
	if err != nil {
		return nil, err
	}
	for key, value := range a.Extra {
		if _, ok := knownFields[key]; ok {
			continue
		}
		doc[key] = cloneValue(value)
	}
	return doc, nil
}

// FromDocument decodes a raw stored document into a record. Fields the
// document does not carry stay at their zero value; keys the record does not
// map land in Extra.
func FromDocument(doc Document) (Application, error) {
	payload, err := doc.Encode()
	if err != nil {
		return Application{}, err
	}
	var out Application
	if err := json.Unmarshal(payload, &out); err != nil {
		return Application{}, fmt.Errorf("%w: decode application %q: %v", ErrInvalidDocument, doc.ID(), err)
	}
	if out.SchemaVersion == 0 {
		out.SchemaVersion = doc.SchemaVersion()
	}
	out.Extra = doc.Unknown()
	return out, nil
}
