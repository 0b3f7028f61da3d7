package dispatch

import (
	"strings"

	"github.com/dvloznov/finassist/internal/record"
	"github.com/dvloznov/finassist/internal/validation"
)

// Operations understood by the envelope. Only OpCreate is implemented.
const (
	OpCreate = "CREATE"
	OpRead   = "READ"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Request is the inbound operation envelope.
type Request struct {
	Operation string      `json:"operation" validate:"required"`
	Entity    string      `json:"entity" validate:"required"`
	Data      record.Data `json:"data"`
}

// normalize trims both names, upper-cases the operation and lower-cases the
// entity.
func (r Request) normalize() Request {
	r.Operation = strings.ToUpper(strings.TrimSpace(r.Operation))
	r.Entity = strings.ToLower(strings.TrimSpace(r.Entity))
	return r
}

// Result is the outbound envelope. Exactly one Result is produced per
// dispatch, whatever happened inside.
type Result struct {
	Success       bool                    `json:"success"`
	OperationType string                  `json:"operation_type"`
	Entity        string                  `json:"entity"`
	SQLQuery      string                  `json:"sql_query"`
	Results       map[string]any          `json:"results"`
	StatusMessage string                  `json:"status_message"`
	Error         *string                 `json:"error"`
	ErrorKind     Kind                    `json:"error_kind,omitempty"`
	FieldErrors   []validation.FieldError `json:"field_errors,omitempty"`
}

// Err returns the failure as an *Error, or nil on success.
func (r *Result) Err() error {
	if r.Success || r.Error == nil {
		return nil
	}
	return &Error{Kind: r.ErrorKind, Message: *r.Error, Fields: r.FieldErrors}
}

// InsertedRows returns results.inserted_row_count.
func (r *Result) InsertedRows() int64 {
	n, _ := r.Results[ResultInsertedRows].(int64)
	return n
}

// ResultInsertedRows is the results key holding the affected row count.
const ResultInsertedRows = "inserted_row_count"

func failure(req Request, e *Error) *Result {
	msg := e.Message
	return &Result{
		Success:       false,
		OperationType: req.Operation,
		Entity:        req.Entity,
		Error:         &msg,
		ErrorKind:     e.Kind,
		FieldErrors:   e.Fields,
	}
}
