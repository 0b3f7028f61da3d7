// Package statement turns a record into an INSERT statement for BigQuery.
//
// Table names come only from a resolved schema, column names only from the
// schema's declared fields, and every value is rendered through Literal.
package statement

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dvloznov/finassist/internal/record"
	"github.com/dvloznov/finassist/internal/schema"
	"github.com/dvloznov/finassist/internal/validation"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/rs/zerolog"
)

var (
	// ErrEmptyData is returned for a record without fields.
	ErrEmptyData = errors.New("no data provided for insertion")
	// ErrUnknownField is returned for a field the schema does not declare.
	ErrUnknownField = errors.New("unknown field")
)

// Statement is a built INSERT.
type Statement struct {
	SQL     string   `json:"sql"`
	Table   string   `json:"table"`
	Columns []string `json:"columns"`

	// IDField is the schema's identifier column; ID is its value when the
	// record carried or generated one.
	IDField string `json:"id_field"`
	ID      string `json:"id,omitempty"`
}

// Builder builds INSERT statements against one BigQuery dataset.
type Builder struct {
	projectID string
	datasetID string
	newID     func() string
	log       zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithIDGenerator overrides the identifier generator used for auto ids.
func WithIDGenerator(f func() string) Option {
	return func(b *Builder) {
		b.newID = f
	}
}

// NewBuilder returns a builder for project.dataset.
func NewBuilder(projectID, datasetID string, log zerolog.Logger, opts ...Option) *Builder {
	b := &Builder{
		projectID: projectID,
		datasetID: datasetID,
		newID:     uuid.NewString,
		log:       log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Table returns the fully qualified, backquoted table of an entity.
func (b *Builder) Table(s *schema.EntitySchema) string {
	return fmt.Sprintf("`%s.%s.%s`", b.projectID, b.datasetID, s.Name)
}

// Build renders r as an INSERT into the table of s. Columns keep record
// order. Auto identifiers (transaction_id, account_id) get a fresh UUID and
// auto timestamps the server time; other auto fields are left out.
// Placeholders still present render NULL. Dates and numbers given as text
// are rewritten to ISO dates and plain decimals.
func (b *Builder) Build(s *schema.EntitySchema, r *record.Record) (*Statement, error) {
	if r == nil || r.IsEmpty() {
		return nil, ErrEmptyData
	}

	st := &Statement{
		Table:   b.Table(s),
		IDField: s.IDField,
	}
	var values []interface{}

	for _, e := range r.Entries() {
		f, ok := s.Field(e.Name)
		if !ok {
			return nil, fmt.Errorf("Build: %w: %s", ErrUnknownField, e.Name)
		}

		var v any
		switch e.Value.State() {
		case record.Auto:
			switch {
			case f.Name == s.IDField || schema.IsIdentifier(f.Name):
				v = b.newID()
			case f.Type == schema.TypeTimestamp:
				v = serverTime{}
			default:
				continue
			}
		case record.Required, record.Pending:
			v = nil
		default:
			v = normalize(f, e.Value.Raw())
		}

		if f.Name == s.IDField {
			if id, ok := v.(string); ok {
				st.ID = id
			} else if id, ok := e.Value.Text(); ok {
				st.ID = id
			}
		}

		st.Columns = append(st.Columns, f.Name)
		values = append(values, sqlbuilder.Raw(Literal(f.Name, v)))
	}

	if len(st.Columns) == 0 {
		return nil, ErrEmptyData
	}

	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto(st.Table)
	ib.Cols(st.Columns...)
	ib.Values(values...)
	st.SQL, _ = ib.Build()

	b.log.Info().
		Str("entity", s.Name).
		Str("sql", st.SQL).
		Msg("built insert statement")

	return st, nil
}

// normalize rewrites text in date and numeric columns into the form BigQuery
// casts. Text that does not parse is kept and quoted as is.
func normalize(f schema.Field, v any) any {
	text, ok := v.(string)
	if !ok {
		return v
	}
	switch f.Type {
	case schema.TypeDate:
		if d, _, ok := validation.ParseDate(text); ok {
			return d
		}
	case schema.TypeNumeric:
		if n, ok := validation.NormalizeNumber(text); ok {
			return json.Number(n)
		}
	}
	return v
}
