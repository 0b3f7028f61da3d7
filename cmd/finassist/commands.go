package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dvloznov/finassist/internal/app"
	"github.com/dvloznov/finassist/internal/categorize"
	"github.com/dvloznov/finassist/internal/config"
	"github.com/dvloznov/finassist/internal/dispatch"
	infraBQ "github.com/dvloznov/finassist/internal/infra/bigquery"
	"github.com/dvloznov/finassist/internal/logger"
	"github.com/dvloznov/finassist/internal/record"
	"github.com/dvloznov/finassist/internal/schema"
	"github.com/dvloznov/finassist/internal/validation"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// errDispatchFailed makes the process exit non-zero after the failure
// Result has been printed.
var errDispatchFailed = errors.New("dispatch failed")

type options struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "finassist",
		Short: "Validate, categorize and persist finance records",
		Long: `finassist runs operation envelopes through the record pipeline.

Envelopes look like:
  {"operation":"CREATE","entity":"transactions","data":{...}}

Placeholder values "required", "pending" and "auto" mark fields still to be
asked, inferred or generated.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to a finassist config file")

	root.AddCommand(
		newDispatchCmd(opts),
		newValidateCmd(opts),
		newCategorizeCmd(opts),
		newContextCmd(opts),
	)
	return root
}

// load reads configuration and builds a logger writing to stderr, keeping
// stdout for JSON output.
func (o *options) load(cmd *cobra.Command) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return config.Config{}, zerolog.Logger{}, err
	}
	log, err := logger.NewFromConfig(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return config.Config{}, zerolog.Logger{}, err
	}
	return cfg, log, nil
}

func newDispatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch [envelope.json]",
		Short: "Dispatch an operation envelope to BigQuery",
		Long:  "Reads an envelope from the given file, or stdin when omitted or '-', and prints the Result.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.Dispatcher.DispatchJSON(cmd.Context(), body)
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return errDispatchFailed
			}
			return nil
		},
	}
}

// validateOutput is printed by the validate command.
type validateOutput struct {
	Entity      string                  `json:"entity"`
	Valid       bool                    `json:"valid"`
	Missing     []string                `json:"missing"`
	Pending     []string                `json:"pending"`
	Inferred    *categorize.Suggestion  `json:"inferred,omitempty"`
	FieldErrors []validation.FieldError `json:"field_errors"`
}

func newValidateCmd(opts *options) *cobra.Command {
	var infer bool

	cmd := &cobra.Command{
		Use:   "validate [envelope.json]",
		Short: "Report missing, pending and invalid fields without persisting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			var env dispatch.Request
			if err := json.Unmarshal(body, &env); err != nil {
				return fmt.Errorf("decoding envelope: %w", err)
			}
			s, err := schema.Resolve(env.Entity)
			if err != nil {
				return err
			}

			rec := record.FromData(s, env.Data)
			out := validateOutput{Entity: s.Name}

			if infer {
				cfg, log, err := opts.load(cmd)
				if err != nil {
					return err
				}
				c, err := app.NewCategorizer(cmd.Context(), cfg.Categorizer, categorize.DefaultTaxonomy(), log)
				if err != nil {
					return err
				}
				if sug, ok := categorize.ResolvePending(cmd.Context(), c, rec); ok {
					out.Inferred = &sug
				}
			}

			out.Missing = orEmpty(rec.Missing())
			out.Pending = orEmpty(rec.PendingFields())
			out.FieldErrors = validation.ValidateRecord(rec)
			if out.FieldErrors == nil {
				out.FieldErrors = []validation.FieldError{}
			}
			out.Valid = len(out.FieldErrors) == 0

			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&infer, "infer", true, "infer pending category fields before validating")
	return cmd
}

func newCategorizeCmd(opts *options) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "categorize <establishment>",
		Short: "Suggest a category and subcategory for an establishment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			c, err := app.NewCategorizer(cmd.Context(), cfg.Categorizer, categorize.DefaultTaxonomy(), log)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), c.Suggest(cmd.Context(), args[0], description))
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "free-text notes passed to the categorizer")
	return cmd
}

func newContextCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "context <user_id>",
		Short: "Print a user's profile and accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			client, err := infraBQ.NewClient(cmd.Context(), cfg.BigQuery.ProjectID, cfg.BigQuery.DatasetID, cfg.BigQuery.Location)
			if err != nil {
				return err
			}
			defer client.Close()

			uc, err := client.UserContext(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), uc)
		},
	}
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		body, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return body, nil
	}
	body, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", args[0], err)
	}
	return body, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
