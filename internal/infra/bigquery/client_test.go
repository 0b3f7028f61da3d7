package bigquery

import (
	"encoding/json"
	"math/big"
	"testing"
	"testing/fstest"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
)

func TestAffectedRows(t *testing.T) {
	tests := []struct {
		name   string
		status *bigquery.JobStatus
		want   int64
	}{
		{"nil status", nil, 0},
		{"no statistics", &bigquery.JobStatus{}, 0},
		{
			name: "query statistics",
			status: &bigquery.JobStatus{Statistics: &bigquery.JobStatistics{
				Details: &bigquery.QueryStatistics{NumDMLAffectedRows: 3},
			}},
			want: 3,
		},
		{
			name: "load statistics",
			status: &bigquery.JobStatus{Statistics: &bigquery.JobStatistics{
				Details: &bigquery.LoadStatistics{OutputRows: 10},
			}},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := affectedRows(tt.status); got != tt.want {
				t.Errorf("affectedRows() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTableName(t *testing.T) {
	c := &Client{projectID: "proj", datasetID: "finance"}
	if got := c.table("accounts"); got != "`proj.finance.accounts`" {
		t.Errorf("table() = %s", got)
	}
}

func TestAccountRow_MarshalJSON(t *testing.T) {
	row := AccountRow{
		AccountID:   "acc-1",
		AccountName: "Visa",
		AccountType: "credit_card",
		Institution: bigquery.NullString{StringVal: "Chase", Valid: true},
		Currency:    "USD",
		Balance:     big.NewRat(-2505, 10),
		DueDate:     bigquery.NullDate{Date: civil.Date{Year: 2025, Month: 2, Day: 15}, Valid: true},
	}

	out, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["balance"] != "-250.5" || got["institution"] != "Chase" || got["account_id"] != "acc-1" || got["due_date"] != "2025-02-15" {
		t.Errorf("unexpected JSON: %s", out)
	}

	row.Balance = nil
	row.Institution = bigquery.NullString{}
	row.DueDate = bigquery.NullDate{}
	out, _ = json.Marshal(row)
	got = nil
	_ = json.Unmarshal(out, &got)
	if got["balance"] != nil || got["institution"] != nil || got["due_date"] != nil {
		t.Errorf("NULL columns should encode as null: %s", out)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_create_users.sql", true, 1, "create_users"},
		{"0012_add_index.sql", true, 12, "add_index"},
		{"001_invalid.sql", false, 0, ""},
		{"0001_test", false, 0, ""},
		{"0001.sql", false, 0, ""},
		{"invalid_0001_test.sql", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := ParseMigrationFilename(tt.filename)
			if ok != tt.valid || version != tt.version || name != tt.name {
				t.Errorf("ParseMigrationFilename(%q) = %d, %q, %v", tt.filename, version, name, ok)
			}
		})
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_accounts.sql":     {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.accounts` (account_id STRING);")},
		"0001_users.sql":        {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.users` (user_id STRING);")},
		"README.md":             {Data: []byte("notes")},
		"0003_transactions.txt": {Data: []byte("ignored")},
	}

	got, err := ReadMigrations(fsys, "proj", "finance")
	if err != nil {
		t.Fatalf("ReadMigrations: %v", err)
	}

	var names []string
	for _, m := range got {
		names = append(names, m.Filename)
	}
	if diff := cmp.Diff([]string{"0001_users.sql", "0002_accounts.sql"}, names); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if got[0].SQL != "CREATE TABLE `proj.finance.users` (user_id STRING);" {
		t.Errorf("placeholders not substituted: %s", got[0].SQL)
	}

	other, err := ReadMigrations(fsys, "other-proj", "other")
	if err != nil {
		t.Fatalf("ReadMigrations: %v", err)
	}
	if other[0].Checksum != got[0].Checksum {
		t.Error("checksum should not depend on project or dataset")
	}
	if got[0].Checksum == got[1].Checksum {
		t.Error("different files should have different checksums")
	}
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_users.sql":    {Data: []byte("SELECT 1")},
		"0001_accounts.sql": {Data: []byte("SELECT 2")},
	}
	if _, err := ReadMigrations(fsys, "p", "d"); err == nil {
		t.Error("expected error for duplicate version")
	}
}

func TestPending(t *testing.T) {
	migrations := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	applied := []AppliedMigration{{Version: 1}, {Version: 3}}

	got := Pending(migrations, applied)
	if len(got) != 1 || got[0].Version != 2 {
		t.Errorf("Pending() = %+v", got)
	}
}
