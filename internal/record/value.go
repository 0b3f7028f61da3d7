// Package record holds the field-state model of a partially extracted record.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// State is the tag of a FieldValue.
type State int

const (
	// Concrete holds an actual value.
	Concrete State = iota
	// Required must be supplied by the user before persistence.
	Required
	// Pending must be inferred by the system and is never asked of the user.
	Pending
	// Auto is assigned by the system at persistence time.
	Auto
)

// Wire sentinels used by the envelope.
const (
	sentinelRequired = "required"
	sentinelPending  = "pending"
	sentinelAuto     = "auto"
)

func (s State) String() string {
	switch s {
	case Required:
		return sentinelRequired
	case Pending:
		return sentinelPending
	case Auto:
		return sentinelAuto
	default:
		return "concrete"
	}
}

// FieldValue is a tagged variant over a record field.
type FieldValue struct {
	state State
	value any
}

// Value wraps a concrete value.
func Value(v any) FieldValue { return FieldValue{state: Concrete, value: v} }

// RequiredValue marks a field the user must supply.
func RequiredValue() FieldValue { return FieldValue{state: Required} }

// PendingValue marks a field the system must infer.
func PendingValue() FieldValue { return FieldValue{state: Pending} }

// AutoValue marks a field assigned at persistence time.
func AutoValue() FieldValue { return FieldValue{state: Auto} }

// State returns the tag.
func (f FieldValue) State() State { return f.state }

// IsConcrete reports whether the value is Concrete.
func (f FieldValue) IsConcrete() bool { return f.state == Concrete }

// IsPlaceholder reports whether the value is Required or Pending.
func (f FieldValue) IsPlaceholder() bool { return f.state == Required || f.state == Pending }

// Raw returns the concrete value, or nil for any other state.
func (f FieldValue) Raw() any {
	if f.state != Concrete {
		return nil
	}
	return f.value
}

// Text renders a concrete scalar as text. ok is false for placeholders, nil,
// and non-scalar values.
func (f FieldValue) Text() (string, bool) {
	if f.state != Concrete {
		return "", false
	}
	switch v := f.value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	default:
		return "", false
	}
}

func (f FieldValue) String() string {
	if f.state != Concrete {
		return f.state.String()
	}
	return fmt.Sprint(f.value)
}

// ParseSentinel maps the envelope sentinel strings to their state.
func ParseSentinel(s string) (State, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case sentinelRequired:
		return Required, true
	case sentinelPending:
		return Pending, true
	case sentinelAuto:
		return Auto, true
	}
	return Concrete, false
}

// UnmarshalJSON decodes sentinel strings into their state and everything
// else into a Concrete value. Numbers are kept as json.Number.
func (f *FieldValue) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decoding field value: %w", err)
	}
	if s, ok := v.(string); ok {
		if st, ok := ParseSentinel(s); ok {
			*f = FieldValue{state: st}
			return nil
		}
	}
	*f = Value(v)
	return nil
}

// MarshalJSON writes placeholders back as their sentinel strings.
func (f FieldValue) MarshalJSON() ([]byte, error) {
	if f.state != Concrete {
		return json.Marshal(f.state.String())
	}
	return json.Marshal(f.value)
}
