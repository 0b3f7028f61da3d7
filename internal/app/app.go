// Package app wires the record pipeline from configuration. Both the HTTP
// server and the CLI build their components through it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finassist/internal/audit"
	"github.com/dvloznov/finassist/internal/categorize"
	"github.com/dvloznov/finassist/internal/config"
	"github.com/dvloznov/finassist/internal/dispatch"
	infraBQ "github.com/dvloznov/finassist/internal/infra/bigquery"
	"github.com/dvloznov/finassist/internal/statement"
	"github.com/rs/zerolog"
)

// App holds the long-lived clients and the dispatcher built on them.
type App struct {
	Config      config.Config
	Log         zerolog.Logger
	BigQuery    *infraBQ.Client
	Taxonomy    *categorize.Taxonomy
	Categorizer categorize.Categorizer
	Dispatcher  *dispatch.Dispatcher

	closers []func() error
}

// New connects to BigQuery (and Cloud Storage when an audit bucket is
// configured) and builds the dispatcher.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		Taxonomy: categorize.DefaultTaxonomy(),
	}

	client, err := infraBQ.NewClient(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.DatasetID, cfg.BigQuery.Location)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	a.BigQuery = client
	a.closers = append(a.closers, client.Close)

	a.Categorizer, err = NewCategorizer(ctx, cfg.Categorizer, a.Taxonomy, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("New: %w", err)
	}

	sink, closeSink, err := NewAuditSink(ctx, cfg.Audit, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("New: %w", err)
	}
	if closeSink != nil {
		a.closers = append(a.closers, closeSink)
	}

	builder := statement.NewBuilder(cfg.BigQuery.ProjectID, cfg.BigQuery.DatasetID, log)
	a.Dispatcher = dispatch.New(builder, client, log,
		dispatch.WithCategorizer(a.Categorizer),
		dispatch.WithRecorder(sink),
		dispatch.WithValidation(cfg.Dispatch.Validate),
	)

	return a, nil
}

// Close releases every client in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewCategorizer returns the keyword rules or the model-backed categorizer.
func NewCategorizer(ctx context.Context, cfg config.CategorizerConfig, taxonomy *categorize.Taxonomy, log zerolog.Logger) (categorize.Categorizer, error) {
	switch cfg.Mode {
	case "", config.CategorizerRules:
		return categorize.NewEngine(), nil
	case config.CategorizerModel:
		m, err := categorize.NewModelCategorizer(ctx, cfg.Model, taxonomy, log)
		if err != nil {
			return nil, fmt.Errorf("NewCategorizer: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("NewCategorizer: unknown mode %q", cfg.Mode)
	}
}

// NewAuditSink always logs results and additionally archives them to Cloud
// Storage when a bucket is configured. The returned close func is nil when
// no storage client was created.
func NewAuditSink(ctx context.Context, cfg config.AuditConfig, log zerolog.Logger) (audit.Sink, func() error, error) {
	logSink := audit.NewLogSink(log.With().Str("component", "audit").Logger())
	if cfg.Bucket == "" {
		return logSink, nil, nil
	}

	w, err := audit.NewGCSWriter(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("NewAuditSink: %w", err)
	}
	bucket, prefix := audit.Destination(cfg.Bucket, cfg.Prefix)
	log.Info().Str("destination", audit.URI(bucket, prefix)).Msg("Archiving dispatch results")

	return audit.Multi(logSink, audit.NewGCSSink(w, bucket, prefix)), w.Close, nil
}
