package dispatch

import (
	"github.com/dvloznov/finassist/internal/validation"
)

// Kind classifies a failed dispatch.
type Kind string

const (
	KindMalformedRequest       Kind = "MalformedRequest"
	KindInvalidEntity          Kind = "InvalidEntity"
	KindEmptyData              Kind = "EmptyData"
	KindUnsupportedOperation   Kind = "UnsupportedOperation"
	KindFieldValidationFailure Kind = "FieldValidationFailure"
	KindPersistenceFailure     Kind = "PersistenceFailure"
	KindInternal               Kind = "Internal"
)

// Error is a dispatch failure carrying its Kind. Err keeps the underlying
// cause for errors.Is / errors.As.
type Error struct {
	Kind    Kind
	Message string
	Fields  []validation.FieldError
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}
