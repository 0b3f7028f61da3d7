package main

import (
	"os"
	"strings"
	"testing"

	infraBQ "github.com/dvloznov/finassist/internal/infra/bigquery"
	"github.com/dvloznov/finassist/internal/schema"
	"github.com/google/go-cmp/cmp"
)

func TestResolveMigrationsDir(t *testing.T) {
	// Tests run from cmd/migrate, so the repository copy is found via ../..
	dir, err := resolveMigrationsDir("migrations/bigquery")
	if err != nil {
		t.Fatalf("resolveMigrationsDir: %v", err)
	}
	if !strings.HasSuffix(dir, "migrations/bigquery") {
		t.Errorf("dir = %q", dir)
	}

	if _, err := resolveMigrationsDir("no/such/dir"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestRepositoryMigrations(t *testing.T) {
	dir, err := resolveMigrationsDir("migrations/bigquery")
	if err != nil {
		t.Fatalf("resolveMigrationsDir: %v", err)
	}

	migrations, err := infraBQ.ReadMigrations(os.DirFS(dir), "proj", "finance")
	if err != nil {
		t.Fatalf("ReadMigrations: %v", err)
	}

	var names []string
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration %s has version %d, want %d", m.Filename, m.Version, i+1)
		}
		if strings.Contains(m.SQL, "{{") {
			t.Errorf("%s: unsubstituted placeholder", m.Filename)
		}
		if !strings.Contains(m.SQL, "`proj.finance.") {
			t.Errorf("%s: table not qualified with project and dataset", m.Filename)
		}
		names = append(names, m.Name)
	}

	want := []string{"create_users", "create_accounts", "create_transactions"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("migrations mismatch (-want +got):\n%s", diff)
	}
}

func TestMigrationsCoverEntityFields(t *testing.T) {
	dir, err := resolveMigrationsDir("migrations/bigquery")
	if err != nil {
		t.Fatalf("resolveMigrationsDir: %v", err)
	}
	migrations, err := infraBQ.ReadMigrations(os.DirFS(dir), "proj", "finance")
	if err != nil {
		t.Fatalf("ReadMigrations: %v", err)
	}

	for _, entity := range schema.Names() {
		s, err := schema.Resolve(entity)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", entity, err)
		}
		var ddl string
		for _, m := range migrations {
			if strings.Contains(m.SQL, "`proj.finance."+entity+"`") {
				ddl = m.SQL
			}
		}
		if ddl == "" {
			t.Errorf("no migration creates %s", entity)
			continue
		}
		for _, field := range s.FieldNames() {
			if !strings.Contains(ddl, "  "+field+" ") {
				t.Errorf("%s: column %s missing from DDL", entity, field)
			}
		}
	}
}
