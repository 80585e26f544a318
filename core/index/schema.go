package index

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/constpipe/core"
)

// FieldType is the storage type of a schema field.
type FieldType string

const (
	TypeString     FieldType = "string"
	TypeInt        FieldType = "int64"
	TypeStringList FieldType = "string[]"
)

// Field describes one indexed field.
type Field struct {
	Name     string    `json:"name" yaml:"name"`
	Type     FieldType `json:"type" yaml:"type"`
	Key      bool      `json:"key,omitempty" yaml:"key,omitempty"`
	Facet    bool      `json:"facet,omitempty" yaml:"facet,omitempty"`
	Sort     bool      `json:"sort,omitempty" yaml:"sort,omitempty"`
	Search   bool      `json:"search,omitempty" yaml:"search,omitempty"`
	Optional bool      `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Schema is the field set of an index.
type Schema struct {
	Name        string  `json:"name"`
	Fields      []Field `json:"fields"`
	DefaultSort string  `json:"default_sort"`
}

// Field names.
const (
	FieldID               = "id"
	FieldKind             = "kind"
	FieldNumber           = "number"
	FieldFullReference    = "full_reference"
	FieldText             = "text"
	FieldContextText      = "context_text"
	FieldParentTitle      = "parent_title"
	FieldParentChapter    = "parent_chapter"
	FieldParentSection    = "parent_section"
	FieldParentSubsection = "parent_subsection"
	FieldParentArticle    = "parent_article"
	FieldSource           = "source"
	FieldIndexedAt        = "indexed_at"
	FieldTags             = "tags"
)

// DefaultSchema returns the schema of a constitution index.
func DefaultSchema(name string) Schema {
	return Schema{
		Name: name,
		Fields: []Field{
			{Name: FieldID, Type: TypeString, Key: true},
			{Name: FieldKind, Type: TypeString, Facet: true},
			{Name: FieldNumber, Type: TypeString, Sort: true, Optional: true},
			{Name: FieldFullReference, Type: TypeString, Sort: true, Search: true},
			{Name: FieldText, Type: TypeString, Search: true},
			{Name: FieldContextText, Type: TypeString, Search: true, Optional: true},
			{Name: FieldParentTitle, Type: TypeString, Facet: true, Optional: true},
			{Name: FieldParentChapter, Type: TypeString, Facet: true, Optional: true},
			{Name: FieldParentSection, Type: TypeString, Facet: true, Optional: true},
			{Name: FieldParentSubsection, Type: TypeString, Facet: true, Optional: true},
			{Name: FieldParentArticle, Type: TypeString, Facet: true, Optional: true},
			{Name: FieldSource, Type: TypeString},
			{Name: FieldIndexedAt, Type: TypeInt, Sort: true},
			{Name: FieldTags, Type: TypeStringList, Facet: true, Optional: true},
		},
		DefaultSort: FieldFullReference,
	}
}

// Key returns the name of the key field.
func (s Schema) Key() string {
	for _, f := range s.Fields {
		if f.Key {
			return f.Name
		}
	}
	return FieldID
}

// Field looks up a field by name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Compatible reports whether other has the same fields with the same types.
// Field order and the schema name are ignored.
func (s Schema) Compatible(other Schema) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for _, f := range s.Fields {
		g, ok := other.Field(f.Name)
		if !ok || g.Type != f.Type || g.Key != f.Key {
			return false
		}
	}
	return true
}

// Record is the flat form of a document sent to an engine.
type Record map[string]any

// ID returns the record's key, if it is a string.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// ToRecord converts a document to its flat form.
func ToRecord(doc core.IndexedDocument) Record {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	return Record{
		FieldID:               doc.ID,
		FieldKind:             string(doc.Kind),
		FieldNumber:           doc.Number,
		FieldFullReference:    doc.FullReference,
		FieldText:             doc.Text,
		FieldContextText:      doc.ContextText,
		FieldParentTitle:      doc.ParentTitle,
		FieldParentChapter:    doc.ParentChapter,
		FieldParentSection:    doc.ParentSection,
		FieldParentSubsection: doc.ParentSubsection,
		FieldParentArticle:    doc.ParentArticle,
		FieldSource:           doc.Source,
		FieldIndexedAt:        doc.IndexedAt,
		FieldTags:             tags,
	}
}

// Coerce returns a copy of r holding exactly the schema's fields, converted
// to their declared types. Unknown fields are dropped. A missing key, a
// missing required field or a value that cannot be converted rejects the
// record with an error wrapping ErrRejected. Invalid UTF-8 is repaired.
func (s Schema) Coerce(r Record) (Record, error) {
	out := make(Record, len(s.Fields))
	for _, f := range s.Fields {
		v, present := r[f.Name]
		if !present || v == nil {
			if f.Key || !f.Optional {
				return nil, fmt.Errorf("%w: missing field %q", ErrRejected, f.Name)
			}
			out[f.Name] = zero(f.Type)
			continue
		}
		cv, err := coerceValue(f.Type, v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrRejected, f.Name, err)
		}
		if f.Key && cv.(string) == "" {
			return nil, fmt.Errorf("%w: empty key", ErrRejected)
		}
		out[f.Name] = cv
	}
	return out, nil
}

func zero(t FieldType) any {
	switch t {
	case TypeInt:
		return int64(0)
	case TypeStringList:
		return []string{}
	default:
		return ""
	}
}

func coerceValue(t FieldType, v any) (any, error) {
	switch t {
	case TypeString:
		switch x := v.(type) {
		case string:
			return strings.ToValidUTF8(x, "�"), nil
		case []byte:
			return strings.ToValidUTF8(string(x), "�"), nil
		case fmt.Stringer:
			return strings.ToValidUTF8(x.String(), "�"), nil
		case int, int64, float64, bool:
			return fmt.Sprint(x), nil
		}
	case TypeInt:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		case float64:
			if x == math.Trunc(x) && !math.IsInf(x, 0) {
				return int64(x), nil
			}
		case json.Number:
			return x.Int64()
		case string:
			return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		}
	case TypeStringList:
		switch x := v.(type) {
		case []string:
			out := make([]string, len(x))
			for i, s := range x {
				out[i] = strings.ToValidUTF8(s, "�")
			}
			return out, nil
		case []any:
			out := make([]string, 0, len(x))
			for _, e := range x {
				s, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf("list element of type %T", e)
				}
				out = append(out, strings.ToValidUTF8(s, "�"))
			}
			return out, nil
		case string:
			return []string{strings.ToValidUTF8(x, "�")}, nil
		}
	}
	return nil, fmt.Errorf("cannot convert %T to %s", v, t)
}
