package validation

import (
	"strconv"
	"strings"

	"github.com/dvloznov/finassist/internal/record"
	"github.com/dvloznov/finassist/internal/schema"
)

// Failure reasons reported per field.
const (
	ReasonUnknownField = "unknown field"
	ReasonMissing      = "missing required field"
	ReasonPending      = "pending field was not inferred"
	ReasonInvalid      = "invalid value"
)

// FieldError describes one failing field. Failures are reported individually
// so a caller can ask for exactly the missing pieces.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

type check func(text string) bool

var fieldChecks = map[string]check{
	"amount":           Amount,
	"balance":          signedNumber,
	"currency":         Currency,
	"payment_method":   PaymentMethod,
	"transaction_type": TransactionType,
	"account_type":     AccountType,
}

// ValidateRecord checks every concrete field of r against its validator and reports
// unknown, missing, unresolved and invalid fields. A nil result means the
// record can be persisted.
func ValidateRecord(r *record.Record) []FieldError {
	s := r.Schema()
	var errs []FieldError

	for _, e := range r.Entries() {
		f, ok := s.Field(e.Name)
		if !ok {
			errs = append(errs, FieldError{Field: e.Name, Reason: ReasonUnknownField})
			continue
		}
		if !e.Value.IsConcrete() || e.Value.Raw() == nil {
			continue
		}
		if reason, ok := checkField(f, e.Value); !ok {
			errs = append(errs, FieldError{Field: e.Name, Reason: reason})
		}
	}

	for _, name := range r.Missing() {
		errs = append(errs, FieldError{Field: name, Reason: ReasonMissing})
	}
	for _, name := range r.PendingFields() {
		errs = append(errs, FieldError{Field: name, Reason: ReasonPending})
	}

	return errs
}

func checkField(f schema.Field, v record.FieldValue) (string, bool) {
	if b, isBool := v.Raw().(bool); isBool {
		if f.Type == schema.TypeBool {
			return "", true
		}
		return ReasonInvalid + ": unexpected boolean " + strconv.FormatBool(b), false
	}

	text, ok := v.Text()
	if !ok {
		return ReasonInvalid + ": unsupported value type", false
	}
	if strings.TrimSpace(text) == "" {
		// Blank optional fields are allowed; blank required ones show up in Missing.
		return "", true
	}

	if c, ok := fieldChecks[f.Name]; ok {
		if !c(text) {
			return ReasonInvalid + ": " + text, false
		}
		return "", true
	}
	if f.Type == schema.TypeDate && !Date(text) {
		return ReasonInvalid + ": unrecognised date " + text, false
	}
	return "", true
}

func signedNumber(text string) bool {
	_, ok := NormalizeNumber(text)
	return ok
}
