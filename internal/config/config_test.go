package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Port != 8080 || c.Queue.Workers != 2 || c.Queue.Buffer != 100 {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if !c.Dispatch.Validate {
		t.Error("validation gate should default to on")
	}
	if c.Categorizer.Mode != CategorizerRules {
		t.Errorf("Categorizer.Mode = %q", c.Categorizer.Mode)
	}
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "BQ_PROJECT_ID") {
		t.Errorf("Validate() = %v, want missing project error", err)
	}
}

func TestLoad_Env(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BQ_PROJECT_ID", "legacy-project")
	t.Setenv("BQ_DATASET_ID", "finance")
	t.Setenv("FINASSIST_SERVER_PORT", "9090")
	t.Setenv("FINASSIST_CATEGORIZER_MODE", " Model ")
	t.Setenv("FINASSIST_DISPATCH_VALIDATE", "false")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.BigQuery.ProjectID != "legacy-project" || c.BigQuery.DatasetID != "finance" {
		t.Errorf("BigQuery = %+v", c.BigQuery)
	}
	if c.Server.Port != 9090 {
		t.Errorf("Server.Port = %d", c.Server.Port)
	}
	if c.Categorizer.Mode != CategorizerModel {
		t.Errorf("Categorizer.Mode = %q", c.Categorizer.Mode)
	}
	if c.Dispatch.Validate {
		t.Error("Dispatch.Validate should be false")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoad_PrefixedEnvWinsOverLegacy(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BQ_PROJECT_ID", "legacy-project")
	t.Setenv("FINASSIST_BIGQUERY_PROJECT_ID", "new-project")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.BigQuery.ProjectID != "new-project" {
		t.Errorf("ProjectID = %q, want new-project", c.BigQuery.ProjectID)
	}
}

func TestLoad_ConfigFileAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(cfg, []byte("bigquery:\n  project_id: file-project\n  dataset_id: file-dataset\naudit:\n  bucket: audit-bucket\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("FINASSIST_QUEUE_WORKERS=5\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("FINASSIST_QUEUE_WORKERS") })

	c, err := Load(cfg, envFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.BigQuery.ProjectID != "file-project" || c.BigQuery.DatasetID != "file-dataset" {
		t.Errorf("BigQuery = %+v", c.BigQuery)
	}
	if c.Audit.Bucket != "audit-bucket" || c.Audit.Prefix != "audit" {
		t.Errorf("Audit = %+v", c.Audit)
	}
	if c.Queue.Workers != 5 {
		t.Errorf("Queue.Workers = %d, want 5", c.Queue.Workers)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := Load("does-not-exist.yaml"); err == nil {
		t.Error("expected error for explicit missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		BigQuery:    BigQueryConfig{ProjectID: "p", DatasetID: "d"},
		Server:      ServerConfig{Port: 8080},
		Queue:       QueueConfig{Buffer: 10, Workers: 1},
		Categorizer: CategorizerConfig{Mode: CategorizerRules},
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"no dataset", func(c *Config) { c.BigQuery.DatasetID = "" }, true},
		{"bad mode", func(c *Config) { c.Categorizer.Mode = "llm" }, true},
		{"no workers", func(c *Config) { c.Queue.Workers = 0 }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
