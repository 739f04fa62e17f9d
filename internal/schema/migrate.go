// Package schema upgrades stored application documents to the current record
// shape. Steps are pure: they never touch storage.
package schema

import (
	"fmt"
	"sort"

	"github.com/Jduquenne/job-lens/internal/record"
)

type Step struct {
	Version     int
	Description string
	Up          func(doc record.Document) (record.Document, error)
}

var defaultSteps = []Step{
	{
		Version:     2,
		Description: "add priority, source, remote, tech stack and archived",
		Up: func(doc record.Document) (record.Document, error) {
			if !doc.Has(record.FieldPriority) {
				doc[record.FieldPriority] = string(record.DefaultPriority)
			}
			if !doc.Has(record.FieldSource) {
				doc[record.FieldSource] = string(record.DefaultSource)
			}
			if !doc.Has(record.FieldRemote) {
				doc[record.FieldRemote] = string(record.DefaultRemote)
			}
			if !doc.Has(record.FieldTechStack) {
				doc[record.FieldTechStack] = []any{}
			}
			if !doc.Has(record.FieldArchived) {
				doc[record.FieldArchived] = false
			}
			doc[record.FieldSchemaVersion] = 2
			return doc, nil
		},
	},
}

func DefaultSteps() []Step {
	out := make([]Step, len(defaultSteps))
	copy(out, defaultSteps)
	return out
}

// Failure records a document that could not be migrated.
type Failure struct {
	ID    string
	Index int
	Err   error
}

type Migrator struct {
	steps   []Step
	current int
}

// New returns a migrator over steps, applied in ascending version order.
func New(steps []Step) *Migrator {
	ordered := make([]Step, len(steps))
	copy(ordered, steps)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	current := 1
	for _, step := range ordered {
		if step.Version > current {
			current = step.Version
		}
	}
	return &Migrator{steps: ordered, current: current}
}

func Default() *Migrator {
	return New(defaultSteps)
}

func (m *Migrator) CurrentVersion() int {
	return m.current
}

// Migrate returns doc upgraded to the current version. A document already at
// or above the current version is returned as-is. The input is never mutated.
func (m *Migrator) Migrate(doc record.Document) (record.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("migrate: %w: nil document", record.ErrInvalidDocument)
	}
	from := doc.SchemaVersion()
	if from >= m.current {
		return doc, nil
	}

	out := doc.Clone()
	for _, step := range m.steps {
		if step.Version <= from {
			continue
		}
		next, err := step.Up(out)
		if err != nil {
			return nil, fmt.Errorf("migrate %q to v%d (%s): %w", doc.ID(), step.Version, step.Description, err)
		}
		if next.SchemaVersion() < step.Version {
			return nil, fmt.Errorf("migrate %q to v%d: step left schemaVersion at %d", doc.ID(), step.Version, next.SchemaVersion())
		}
		out = next
	}
	return out, nil
}

// MigrateAll migrates each document independently. Failed documents are
// left out of the result and reported in failures; they never stop the rest.
// changed holds the indexes (into the result) whose version moved.
func (m *Migrator) MigrateAll(docs []record.Document) (out []record.Document, changed []int, failures []Failure) {
	out = make([]record.Document, 0, len(docs))
	for i, doc := range docs {
		migrated, err := m.Migrate(doc)
		if err != nil {
			failures = append(failures, Failure{ID: doc.ID(), Index: i, Err: err})
			continue
		}
		if migrated.SchemaVersion() != doc.SchemaVersion() {
			changed = append(changed, len(out))
		}
		out = append(out, migrated)
	}
	return out, changed, failures
}
