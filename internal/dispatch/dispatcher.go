// Package dispatch is the single entry point of the record pipeline. It
// checks the operation envelope, resolves the entity, enforces which
// operations are supported and turns every outcome into a Result.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/finassist/internal/categorize"
	"github.com/dvloznov/finassist/internal/record"
	"github.com/dvloznov/finassist/internal/schema"
	"github.com/dvloznov/finassist/internal/statement"
	"github.com/dvloznov/finassist/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Executor runs a statement against storage and returns the affected rows.
type Executor interface {
	Execute(ctx context.Context, sql string) (int64, error)
}

// Builder renders a record as a statement.
type Builder interface {
	Build(s *schema.EntitySchema, r *record.Record) (*statement.Statement, error)
}

// Recorder receives every Result. Failures are logged and never change the
// Result.
type Recorder interface {
	Record(ctx context.Context, res *Result) error
}

// Dispatcher routes operation envelopes.
type Dispatcher struct {
	builder     Builder
	exec        Executor
	categorizer categorize.Categorizer
	recorder    Recorder
	validate    bool
	structs     *validator.Validate
	log         zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCategorizer sets the categorizer used for pending category fields.
func WithCategorizer(c categorize.Categorizer) Option {
	return func(d *Dispatcher) {
		d.categorizer = c
	}
}

// WithRecorder sets the audit recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// WithValidation toggles the field validation gate (on by default).
func WithValidation(enabled bool) Option {
	return func(d *Dispatcher) {
		d.validate = enabled
	}
}

// New returns a Dispatcher persisting through exec.
func New(builder Builder, exec Executor, log zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		builder:     builder,
		exec:        exec,
		categorizer: categorize.NewEngine(),
		validate:    true,
		structs:     validator.New(),
		log:         log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchJSON decodes an envelope and dispatches it.
func (d *Dispatcher) DispatchJSON(ctx context.Context, body []byte) *Result {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		res := failure(Request{}, newError(KindMalformedRequest,
			"Invalid input: operation_data must be a dictionary", err))
		d.record(ctx, res)
		return res
	}
	return d.Dispatch(ctx, req)
}

// Dispatch executes one envelope. It always returns a Result; panics below
// this point are recovered and reported as KindInternal.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) *Result {
	res := d.dispatch(ctx, req.normalize())
	d.record(ctx, res)
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) (res *Result) {
	defer func() {
		if p := recover(); p != nil {
			d.log.Error().
				Interface("panic", p).
				Str("operation", req.Operation).
				Str("entity", req.Entity).
				Msg("dispatch panicked")
			res = failure(req, newError(KindInternal,
				fmt.Sprintf("Error executing CRUD operation: %v", p), nil))
		}
	}()

	if err := d.structs.Struct(req); err != nil {
		return d.fail(req, newError(KindMalformedRequest,
			"Missing required fields: operation and entity", err), nil)
	}

	s, err := schema.Resolve(req.Entity)
	if err != nil {
		return d.fail(req, newError(KindInvalidEntity,
			fmt.Sprintf("Invalid entity: %s. Must be 'transactions' or 'accounts'.", req.Entity), err), nil)
	}

	if req.Operation != OpCreate {
		return d.fail(req, newError(KindUnsupportedOperation,
			fmt.Sprintf("Operation '%s' not yet implemented. Only CREATE is supported at this time.", req.Operation), nil), nil)
	}

	st, rows, err := d.create(ctx, s, req.Data)
	if err != nil {
		var de *Error
		if !errors.As(err, &de) {
			de = newError(KindInternal, err.Error(), err)
		}
		return d.fail(req, de, st)
	}

	results := map[string]any{ResultInsertedRows: rows}
	if st.ID != "" {
		results[st.IDField] = st.ID
	}

	d.log.Info().
		Str("entity", s.Name).
		Str("id", st.ID).
		Int64("rows", rows).
		Msg("record created")

	return &Result{
		Success:       true,
		OperationType: OpCreate,
		Entity:        s.Name,
		SQLQuery:      st.SQL,
		Results:       results,
		StatusMessage: capitalize(s.Name) + " created successfully",
	}
}

// create runs the CREATE path. The returned statement is non-nil whenever
// one was built, including on execution failure.
func (d *Dispatcher) create(ctx context.Context, s *schema.EntitySchema, data record.Data) (*statement.Statement, int64, error) {
	if len(data) == 0 {
		return nil, 0, newError(KindEmptyData, "No data provided for insertion", statement.ErrEmptyData)
	}

	r := record.FromData(s, data)
	if d.categorizer != nil {
		if sug, ok := categorize.ResolvePending(ctx, d.categorizer, r); ok {
			d.log.Debug().
				Str("category", sug.Category).
				Str("subcategory", sug.Subcategory).
				Float64("confidence", sug.Confidence).
				Msg("resolved pending category")
		}
	}

	if d.validate {
		if fields := validation.ValidateRecord(r); len(fields) > 0 {
			return nil, 0, &Error{
				Kind:    KindFieldValidationFailure,
				Message: fieldMessage(fields),
				Fields:  fields,
			}
		}
	}

	st, err := d.builder.Build(s, r)
	switch {
	case errors.Is(err, statement.ErrEmptyData):
		return nil, 0, newError(KindEmptyData, "No data provided for insertion", err)
	case errors.Is(err, statement.ErrUnknownField):
		return nil, 0, &Error{
			Kind:    KindFieldValidationFailure,
			Message: err.Error(),
			Fields:  unknownFields(s, r),
			Err:     err,
		}
	case err != nil:
		return nil, 0, fmt.Errorf("create: building statement: %w", err)
	}

	rows, err := d.exec.Execute(ctx, st.SQL)
	if err != nil {
		return st, 0, newError(KindPersistenceFailure,
			fmt.Sprintf("Error creating %s record: %v", s.Name, err), err)
	}
	return st, rows, nil
}

func (d *Dispatcher) fail(req Request, e *Error, st *statement.Statement) *Result {
	res := failure(req, e)
	if st != nil {
		res.SQLQuery = st.SQL
	}
	ev := d.log.Warn()
	if e.Kind == KindPersistenceFailure || e.Kind == KindInternal {
		ev = d.log.Error()
	}
	ev.Err(e.Err).
		Str("kind", string(e.Kind)).
		Str("operation", req.Operation).
		Str("entity", req.Entity).
		Msg(e.Message)
	return res
}

func (d *Dispatcher) record(ctx context.Context, res *Result) {
	if d.recorder == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			d.log.Error().Interface("panic", p).Msg("audit record panicked")
		}
	}()
	if err := d.recorder.Record(ctx, res); err != nil {
		d.log.Warn().Err(err).Msg("audit record failed")
	}
}

func fieldMessage(fields []validation.FieldError) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Error()
	}
	return "Invalid or missing fields: " + strings.Join(parts, "; ")
}

func unknownFields(s *schema.EntitySchema, r *record.Record) []validation.FieldError {
	var out []validation.FieldError
	for _, e := range r.Entries() {
		if !s.Has(e.Name) {
			out = append(out, validation.FieldError{Field: e.Name, Reason: validation.ReasonUnknownField})
		}
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
