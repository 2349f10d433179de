package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.General.DefaultHorizon != 7 {
		t.Fatalf("DefaultHorizon = %d, want 7", cfg.General.DefaultHorizon)
	}
	tuning := cfg.Forecast.Tuning()
	if tuning.StatisticalWeight != 0.55 || tuning.NeuralWeight != 0.45 {
		t.Fatalf("tuning weights = %v/%v, want 0.55/0.45", tuning.StatisticalWeight, tuning.NeuralWeight)
	}
}

func TestSaveTo_RoundTripsAndRestrictsPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spendcast", "config.toml")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://ledger.example.com"
	cfg.Model.Disabled = true
	monthly := 1200.0
	cfg.Budget.Monthly = &monthly

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.API.BaseURL != cfg.API.BaseURL || !got.Model.Disabled {
		t.Fatalf("round trip lost fields: %+v", got)
	}
	if got.Budget.Monthly == nil || *got.Budget.Monthly != 1200 {
		t.Fatalf("Budget.Monthly = %v, want 1200", got.Budget.Monthly)
	}
}

func TestLoadFrom_RejectsBadScheduleDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[[budget.schedule]]\nfrom = \"January\"\nmonthly = 10\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("LoadFrom accepted an unparseable schedule date")
	}
}

func TestBudgetAt_UsesEffectiveDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[budget]
monthly = 500

[[budget.schedule]]
from = "2025-07-01"
monthly = 2000

[[budget.schedule]]
from = "2025-01-01"
monthly = 1000
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	cases := []struct {
		at   string
		want float64
	}{
		{"2024-12-15", 500},
		{"2025-04-15", 1000},
		{"2025-07-01", 2000},
		{"2025-08-15", 2000},
	}
	for _, c := range cases {
		got, ok := cfg.Budget.BudgetAt(mustDate(t, c.at))
		if !ok {
			t.Fatalf("BudgetAt(%s) returned !ok", c.at)
		}
		if f := got.InexactFloat64(); f != c.want {
			t.Fatalf("BudgetAt(%s) = %.2f, want %.2f", c.at, f, c.want)
		}
	}

	latest, ok := cfg.Budget.BudgetAt(time.Time{})
	if !ok || latest.InexactFloat64() != 2000 {
		t.Fatalf("BudgetAt(zero) = %v/%v, want 2000", latest, ok)
	}
}

func TestBudgetAt_Unset(t *testing.T) {
	if _, ok := (BudgetConfig{}).BudgetAt(time.Now()); ok {
		t.Fatal("BudgetAt reported a budget when none is configured")
	}
}

func TestGetAPIToken_EnvOverridesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.Token = "from-config"

	t.Setenv("SPENDCAST_API_TOKEN", "")
	if got := GetAPIToken(cfg); got != "from-config" {
		t.Fatalf("GetAPIToken = %q, want from-config", got)
	}

	t.Setenv("SPENDCAST_API_TOKEN", "from-env")
	if got := GetAPIToken(cfg); got != "from-env" {
		t.Fatalf("GetAPIToken = %q, want from-env", got)
	}
}

func TestPaths_HonourXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_DATA_HOME", dir)

	if got, want := ConfigPath(), filepath.Join(dir, "spendcast", "config.toml"); got != want {
		t.Fatalf("ConfigPath = %q, want %q", got, want)
	}
	cfg := DefaultConfig()
	if got, want := LedgerPath(cfg), filepath.Join(dir, "spendcast", "ledger.db"); got != want {
		t.Fatalf("LedgerPath = %q, want %q", got, want)
	}
	if got, want := ModelPath(cfg), filepath.Join(dir, "spendcast", "models", "expense_predictor.onnx"); got != want {
		t.Fatalf("ModelPath = %q, want %q", got, want)
	}
}
