// Package schema declares the entity schemas the record pipeline can persist.
//
// The registry is a closed set: only the entities declared here resolve, and
// the statement builder only ever sees table names taken from a resolved
// EntitySchema.
package schema

import (
	"errors"
	"strings"
)

// ErrInvalidEntity is returned when an entity name is outside the allow-list.
var ErrInvalidEntity = errors.New("invalid entity")

// Classification describes when a field has to carry a concrete value.
type Classification int

const (
	// Optional fields may be omitted.
	Optional Classification = iota
	// AlwaysRequired fields must be concrete before persistence.
	AlwaysRequired
	// ConditionallyRequired fields are required when their Condition holds.
	ConditionallyRequired
	// AutoGenerated fields are assigned by the system at persistence time.
	AutoGenerated
)

func (c Classification) String() string {
	switch c {
	case AlwaysRequired:
		return "always_required"
	case ConditionallyRequired:
		return "conditionally_required"
	case AutoGenerated:
		return "auto_generated"
	default:
		return "optional"
	}
}

// FieldType is the storage type of a column.
type FieldType int

const (
	TypeString FieldType = iota
	TypeNumeric
	TypeDate
	TypeTimestamp
	TypeBool
)

// Condition makes a field required when another field holds one of Values.
type Condition struct {
	Field  string
	Values []string
}

// Holds reports whether value (case-insensitive) is one of the condition values.
func (c Condition) Holds(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, want := range c.Values {
		if v == want {
			return true
		}
	}
	return false
}

// Field describes one column of an entity.
type Field struct {
	Name  string
	Type  FieldType
	Class Classification

	// Requestable is false for fields that must be inferred and never asked
	// of the end user (category, subcategory) or that come from context.
	Requestable bool

	// Condition is only meaningful for ConditionallyRequired fields.
	Condition *Condition
}

// EntitySchema is the declaration of one persistable entity.
type EntitySchema struct {
	Name    string
	IDField string
	Fields  []Field

	index map[string]int
}

func newSchema(name, idField string, fields ...Field) *EntitySchema {
	s := &EntitySchema{
		Name:    name,
		IDField: idField,
		Fields:  fields,
		index:   make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		s.index[f.Name] = i
	}
	return s
}

// IdentifierFields are the columns whose "auto" value resolves to a fresh
// identifier in any entity.
var IdentifierFields = []string{"transaction_id", "account_id"}

// IsIdentifier reports whether name is one of IdentifierFields.
func IsIdentifier(name string) bool {
	for _, id := range IdentifierFields {
		if name == id {
			return true
		}
	}
	return false
}

// ResolvesAuto reports whether an "auto" value on the named field is filled
// in at persistence time: identifiers, timestamps and auto-generated columns.
func (s *EntitySchema) ResolvesAuto(name string) bool {
	if IsIdentifier(name) || name == s.IDField {
		return true
	}
	f, ok := s.Field(name)
	if !ok {
		return false
	}
	return f.Class == AutoGenerated || f.Type == TypeTimestamp
}

// Field looks up a field declaration by name.
func (s *EntitySchema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Has reports whether the schema declares the field.
func (s *EntitySchema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// FieldNames returns the declared field names in schema order.
func (s *EntitySchema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// RequestableFields returns the fields that may ever be asked of the user.
func (s *EntitySchema) RequestableFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Requestable {
			names = append(names, f.Name)
		}
	}
	return names
}

// IsRequired reports whether the named field must be concrete. lookup returns
// the concrete string value of another field, used to evaluate conditions.
func (s *EntitySchema) IsRequired(name string, lookup func(field string) (string, bool)) bool {
	f, ok := s.Field(name)
	if !ok {
		return false
	}
	switch f.Class {
	case AlwaysRequired:
		return true
	case ConditionallyRequired:
		if f.Condition == nil || lookup == nil {
			return false
		}
		v, ok := lookup(f.Condition.Field)
		return ok && f.Condition.Holds(v)
	default:
		return false
	}
}

// RequiredFields lists every field that must be concrete given the values
// visible through lookup, in schema order.
func (s *EntitySchema) RequiredFields(lookup func(field string) (string, bool)) []string {
	var names []string
	for _, f := range s.Fields {
		if s.IsRequired(f.Name, lookup) {
			names = append(names, f.Name)
		}
	}
	return names
}
