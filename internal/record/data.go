package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is one named field of an envelope payload.
type Entry struct {
	Name  string
	Value FieldValue
}

// Data is the ordered "data" object of an inbound envelope. Field order is
// preserved from the JSON text because it becomes the column order of the
// generated statement.
type Data []Entry

// Get returns the value of the named field.
func (d Data) Get(name string) (FieldValue, bool) {
	for _, e := range d {
		if e.Name == name {
			return e.Value, true
		}
	}
	return FieldValue{}, false
}

// UnmarshalJSON decodes a JSON object keeping key order. A repeated key keeps
// its first position and its last value.
func (d *Data) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("Data.UnmarshalJSON: reading opening token: %w", err)
	}
	if tok == nil {
		*d = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("Data.UnmarshalJSON: data must be a JSON object, got %v", tok)
	}

	var out Data
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("Data.UnmarshalJSON: reading key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("Data.UnmarshalJSON: unexpected key token %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("Data.UnmarshalJSON: field %q: %w", key, err)
		}
		var fv FieldValue
		if err := fv.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("Data.UnmarshalJSON: field %q: %w", key, err)
		}

		if i, seen := index[key]; seen {
			out[i].Value = fv
			continue
		}
		index[key] = len(out)
		out = append(out, Entry{Name: key, Value: fv})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("Data.UnmarshalJSON: reading closing token: %w", err)
	}

	*d = out
	return nil
}

// MarshalJSON writes the entries as a JSON object in order.
func (d Data) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := e.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("Data.MarshalJSON: field %q: %w", e.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
