// Package audit archives dispatch results: every generated statement and
// its outcome is written to Cloud Storage and/or the log.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/finassist/internal/dispatch"
	"github.com/rs/zerolog"
)

// Sink receives dispatch results.
type Sink interface {
	Record(ctx context.Context, res *dispatch.Result) error
}

var _ dispatch.Recorder = Sink(nil)

// Entry is one archived result.
type Entry struct {
	ID         string           `json:"id"`
	RecordedAt time.Time        `json:"recorded_at"`
	Result     *dispatch.Result `json:"result"`
}

// LogSink writes results to a zerolog logger.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink returns a sink logging at info level for successes and warn
// level for failures.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Record implements Sink.
func (s *LogSink) Record(_ context.Context, res *dispatch.Result) error {
	ev := s.log.Info()
	if !res.Success {
		ev = s.log.Warn().Str("error_kind", string(res.ErrorKind))
	}
	ev.Str("operation", res.OperationType).
		Str("entity", res.Entity).
		Bool("success", res.Success).
		Str("sql", res.SQLQuery).
		Msg("audit")
	return nil
}

// multi fans a result out to several sinks.
type multi []Sink

// Multi returns a sink recording to every non-nil sink. All sinks are
// attempted; their errors are joined.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multi) Record(ctx context.Context, res *dispatch.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
