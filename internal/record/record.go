package record

import (
	"strings"

	"github.com/dvloznov/finassist/internal/schema"
)

// Fields that must never be solicited from the user. A Required placeholder
// arriving for them is downgraded to Pending.
var inferredOnly = map[string]bool{
	"category":    true,
	"subcategory": true,
}

// Record is an ordered mapping from field name to FieldValue bound to a
// single entity schema. It is not safe for concurrent mutation.
type Record struct {
	schema  *schema.EntitySchema
	entries []Entry
	index   map[string]int
}

// New returns an empty record for the given schema.
func New(s *schema.EntitySchema) *Record {
	return &Record{
		schema: s,
		index:  make(map[string]int),
	}
}

// FromData builds a record from an envelope payload, keeping field order.
func FromData(s *schema.EntitySchema, d Data) *Record {
	r := New(s)
	for _, e := range d {
		r.Set(e.Name, e.Value)
	}
	return r
}

// Schema returns the schema the record is bound to.
func (r *Record) Schema() *schema.EntitySchema { return r.schema }

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.entries) }

// IsEmpty reports whether the record carries no fields.
func (r *Record) IsEmpty() bool { return len(r.entries) == 0 }

// Set stores a value, appending new fields at the end and replacing existing
// ones in place.
func (r *Record) Set(name string, v FieldValue) {
	if inferredOnly[name] && v.state == Required {
		v = PendingValue()
	}
	if i, ok := r.index[name]; ok {
		r.entries[i].Value = v
		return
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, Entry{Name: name, Value: v})
}

// Get returns the value of the named field.
func (r *Record) Get(name string) (FieldValue, bool) {
	i, ok := r.index[name]
	if !ok {
		return FieldValue{}, false
	}
	return r.entries[i].Value, true
}

// Text returns the concrete text of the named field.
func (r *Record) Text(name string) (string, bool) {
	v, ok := r.Get(name)
	if !ok {
		return "", false
	}
	return v.Text()
}

// Entries returns a copy of the fields in insertion order.
func (r *Record) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Data returns the record as an envelope payload.
func (r *Record) Data() Data {
	return Data(r.Entries())
}

// Merge folds fields extracted in a later turn into the record. Placeholders
// never replace a concrete value; everything else overwrites.
func (r *Record) Merge(d Data) {
	for _, e := range d {
		if cur, ok := r.Get(e.Name); ok && cur.IsConcrete() && !e.Value.IsConcrete() {
			continue
		}
		r.Set(e.Name, e.Value)
	}
}

// lookup exposes concrete values to schema conditions.
func (r *Record) lookup(field string) (string, bool) {
	return r.Text(field)
}

// Missing lists the fields that have to be asked of the user before the
// record can be persisted, in schema order followed by any extra fields
// explicitly marked Required.
func (r *Record) Missing() []string {
	var missing []string
	seen := make(map[string]bool)
	for _, name := range r.schema.RequiredFields(r.lookup) {
		f, _ := r.schema.Field(name)
		if !f.Requestable {
			continue
		}
		v, ok := r.Get(name)
		if !ok || v.state == Required || !hasContent(v) || r.unresolvedAuto(name, v) {
			missing = append(missing, name)
			seen[name] = true
		}
	}
	for _, e := range r.entries {
		if e.Value.state == Required && !seen[e.Name] {
			missing = append(missing, e.Name)
		}
	}
	return missing
}

// PendingFields lists the fields the system still has to infer: explicit
// Pending placeholders plus required non-requestable fields that are absent.
func (r *Record) PendingFields() []string {
	var pending []string
	seen := make(map[string]bool)
	for _, e := range r.entries {
		if e.Value.state == Pending {
			pending = append(pending, e.Name)
			seen[e.Name] = true
		}
	}
	for _, name := range r.schema.RequiredFields(r.lookup) {
		f, _ := r.schema.Field(name)
		if f.Requestable || seen[name] {
			continue
		}
		if v, ok := r.Get(name); !ok || r.unresolvedAuto(name, v) {
			pending = append(pending, name)
		}
	}
	return pending
}

// Complete reports whether nothing is missing or pending.
func (r *Record) Complete() bool {
	return len(r.Missing()) == 0 && len(r.PendingFields()) == 0
}

// unresolvedAuto reports an "auto" placeholder on a field nothing fills in at
// persistence time.
func (r *Record) unresolvedAuto(name string, v FieldValue) bool {
	return v.state == Auto && !r.schema.ResolvesAuto(name)
}

func hasContent(v FieldValue) bool {
	if v.state != Concrete {
		return true
	}
	switch x := v.value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(x) != ""
	}
	return true
}
