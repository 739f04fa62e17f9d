package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var ErrInvalidDocument = errors.New("record: invalid document")

// Document keys shared by the store and the schema migrator.
const (
	FieldID              = "id"
	FieldSchemaVersion   = "schemaVersion"
	FieldCreatedAt       = "createdAt"
	FieldUpdatedAt       = "updatedAt"
	FieldCompanyName     = "companyName"
	FieldStatus          = "status"
	FieldApplicationDate = "applicationDate"
	FieldLocation        = "location"
	FieldPriority        = "priority"
	FieldSource          = "source"
	FieldRemote          = "remote"
	FieldTechStack       = "techStack"
	FieldArchived        = "archived"
)

// knownFields are the document keys Application maps. Any other key is
// carried through Application.Extra.
var knownFields = map[string]struct{}{
	FieldID: {}, FieldSchemaVersion: {}, FieldCreatedAt: {}, FieldUpdatedAt: {},
	FieldCompanyName: {}, "jobTitle": {}, FieldLocation: {}, "contactEmail": {},
	"jobLink": {}, FieldApplicationDate: {}, FieldStatus: {}, "notes": {},
	"attachmentName": {}, "salary": {}, "contractType": {}, FieldRemote: {},
	FieldTechStack: {}, FieldPriority: {}, FieldArchived: {}, FieldSource: {},
}

// Document is the raw stored shape of a record. Historical records may lack
// any field, so it is kept untyped until migrated.
type Document map[string]any

// DecodeDocument parses a single JSON object.
func DecodeDocument(payload []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidDocument)
	}
	return doc, nil
}

// DecodeDocuments parses a JSON array of objects, as found in export files.
func DecodeDocuments(payload []byte) ([]Document, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidDocument)
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var docs []Document
	if err := dec.Decode(&docs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	for i, doc := range docs {
		if doc == nil {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrInvalidDocument, i)
		}
	}
	return docs, nil
}

func (d Document) Encode() ([]byte, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %q: %v", ErrInvalidDocument, d.ID(), err)
	}
	return payload, nil
}

// ID returns the document id, or "" when it is missing or not a string.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// SchemaVersion returns the stamped version. Legacy documents without a
// usable version are treated as version 1.
func (d Document) SchemaVersion() int {
	v, ok := intValue(d[FieldSchemaVersion])
	if !ok || v < 1 {
		return 1
	}
	return v
}

// String returns a string field, or "" when absent or of another type.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Has reports whether key holds a usable value. Missing keys, null, the
// empty string and false all count as absent, so a migration step fills
// them with its default.
func (d Document) Has(key string) bool {
	switch typed := d[key].(type) {
	case nil:
		return false
	case string:
		return typed != ""
	case bool:
		return typed
	}
	return true
}

// Unknown returns a copy of the keys Application does not map, or nil when
// there are none.
func (d Document) Unknown() Document {
	var out Document
	for key, value := range d {
		if _, ok := knownFields[key]; ok {
			continue
		}
		if out == nil {
			out = Document{}
		}
		out[key] = cloneValue(value)
	}
	return out
}

// Clone deep-copies the document so callers can mutate the result freely.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for key, value := range d {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return map[string]any(Document(typed).Clone())
	case Document:
		return typed.Clone()
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), typed...)
	default:
		return value
	}
}

func intValue(value any) (int, bool) {
	switch typed := value.(type) {
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case float64:
		if typed != math.Trunc(typed) {
			return 0, false
		}
		return int(typed), true
	case json.Number:
		n, err := typed.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
