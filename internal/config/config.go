// Package config loads finassist settings from defaults, an optional config
// file, an optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FINASSIST_SERVER_PORT.
const EnvPrefix = "FINASSIST"

// Categorizer modes.
const (
	CategorizerRules = "rules"
	CategorizerModel = "model"
)

// Config holds application configuration.
type Config struct {
	BigQuery    BigQueryConfig    `mapstructure:"bigquery"`
	Audit       AuditConfig       `mapstructure:"audit"`
	Server      ServerConfig      `mapstructure:"server"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Categorizer CategorizerConfig `mapstructure:"categorizer"`
	Dispatch    DispatchConfig    `mapstructure:"dispatch"`
	Log         LogConfig         `mapstructure:"log"`
}

// BigQueryConfig selects the dataset records are written to.
type BigQueryConfig struct {
	ProjectID string `mapstructure:"project_id"`
	DatasetID string `mapstructure:"dataset_id"`
	Location  string `mapstructure:"location"`
}

// AuditConfig controls where dispatch results are archived. An empty
// bucket keeps the audit trail in the log only.
type AuditConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// QueueConfig sizes the async operation queue.
type QueueConfig struct {
	Buffer  int `mapstructure:"buffer"`
	Workers int `mapstructure:"workers"`
}

// CategorizerConfig selects the categorizer implementation.
type CategorizerConfig struct {
	Mode  string `mapstructure:"mode"`
	Model string `mapstructure:"model"`
}

// DispatchConfig holds dispatcher switches.
type DispatchConfig struct {
	Validate bool `mapstructure:"validate"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bigquery.project_id", "")
	v.SetDefault("bigquery.dataset_id", "")
	v.SetDefault("bigquery.location", "")
	v.SetDefault("audit.bucket", "")
	v.SetDefault("audit.prefix", "audit")
	v.SetDefault("server.port", 8080)
	v.SetDefault("queue.buffer", 100)
	v.SetDefault("queue.workers", 2)
	v.SetDefault("categorizer.mode", CategorizerRules)
	v.SetDefault("categorizer.model", "gemini-2.5-flash")
	v.SetDefault("dispatch.validate", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads configuration. configFile is optional; when empty a
// finassist.{yaml,toml,json} in the working directory is used if present.
// envFiles are loaded into the process environment first (default ".env");
// missing env files are ignored.
func Load(configFile string, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("Load: reading %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The dataset variables used by the rest of the deployment keep working.
	if err := v.BindEnv("bigquery.project_id", EnvPrefix+"_BIGQUERY_PROJECT_ID", "BQ_PROJECT_ID"); err != nil {
		return Config{}, fmt.Errorf("Load: binding project env: %w", err)
	}
	if err := v.BindEnv("bigquery.dataset_id", EnvPrefix+"_BIGQUERY_DATASET_ID", "BQ_DATASET_ID"); err != nil {
		return Config{}, fmt.Errorf("Load: binding dataset env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("Load: reading config file: %w", err)
		}
	} else {
		v.SetConfigName("finassist")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("Load: reading config file: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("Load: unmarshal config: %w", err)
	}
	c.Categorizer.Mode = strings.ToLower(strings.TrimSpace(c.Categorizer.Mode))
	return c, nil
}

// Validate checks the settings needed to reach BigQuery and run the server.
func (c Config) Validate() error {
	var problems []string
	if c.BigQuery.ProjectID == "" {
		problems = append(problems, "bigquery.project_id (BQ_PROJECT_ID) is required")
	}
	if c.BigQuery.DatasetID == "" {
		problems = append(problems, "bigquery.dataset_id (BQ_DATASET_ID) is required")
	}
	if c.Categorizer.Mode != CategorizerRules && c.Categorizer.Mode != CategorizerModel {
		problems = append(problems, fmt.Sprintf("categorizer.mode must be %q or %q, got %q", CategorizerRules, CategorizerModel, c.Categorizer.Mode))
	}
	if c.Queue.Workers < 1 {
		problems = append(problems, "queue.workers must be at least 1")
	}
	if c.Queue.Buffer < 0 {
		problems = append(problems, "queue.buffer cannot be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
