package backend

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fleetdash/internal/config"
	"fleetdash/internal/ledger/memory"
	applog "fleetdash/internal/log"
	"fleetdash/internal/storage"
)

func testFactory() Factory {
	return NewFactory(applog.New(applog.Config{Output: &bytes.Buffer{}}))
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:              "sheets",
		GoogleSpreadsheetID:      "sheet-1",
		GoogleSheetName:          "Transactions",
		GoogleServiceAccountJSON: "{}",
		SeedFile:                 "seed.yaml",
	}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if bc.Type != SheetsBackend || bc.GoogleSpreadsheetID != "sheet-1" || bc.SeedFile != "seed.yaml" {
		t.Errorf("unexpected backend config: %+v", bc)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"sheets without id", Config{Type: SheetsBackend, GoogleServiceAccountJSON: "{}"}, "Spreadsheet ID is required"},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "x"}, "GoogleServiceAccountJSON"},
		{"unknown", Config{Type: "redis"}, "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	data := `- id: "m-1"
  driver_id: "D100"
  date: "2025-04-01"
  usage_category: "Charging"
  cost: "12.50"
  amount_paid: "12.50"
  battery_percentage: 55
  remaining_balance: "80.00"
`
	if err := os.WriteFile(seed, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := testFactory().CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedFile: seed})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	store, ok := res.Store.(*memory.Store)
	if !ok {
		t.Fatalf("store type %T", res.Store)
	}
	if store.Len() != 1 {
		t.Errorf("seeded %d records, want 1", store.Len())
	}
	if res.Publisher != nil {
		t.Error("memory backend has no publisher")
	}
}

func TestCreateSQLiteBackendWithoutAMQP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.db")
	res, err := testFactory().CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Store.(*storage.SQLiteRepository); !ok {
		t.Fatalf("store type %T", res.Store)
	}
	if res.Publisher != nil {
		t.Error("publisher must stay nil without AMQP_URL")
	}
	all, err := res.Store.ListAll(context.Background())
	if err != nil || len(all) != 3 {
		t.Errorf("expected 3 seeded rows, got %d (%v)", len(all), err)
	}
	if err := res.Close(); err != nil {
		t.Errorf("cleanup: %v", err)
	}
}

func TestCreateSheetsBackendRequiresCredentials(t *testing.T) {
	_, err := testFactory().CreateBackend(context.Background(), Config{Type: SheetsBackend, GoogleSpreadsheetID: "x"})
	if err == nil {
		t.Fatal("expected validation error")
	}
}
