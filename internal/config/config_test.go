package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromBase(t *testing.T) {
	dir := t.TempDir()
	body := "version: 1\ntimeout: 10m\nschedule:\n  hour: 4\n  start_date: \"20251215\"\n"
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Base != dir {
		t.Errorf("Base = %q, want %q", res.Base, dir)
	}
	if res.Config.Version != 1 {
		t.Errorf("Version = %d, want 1", res.Config.Version)
	}
	if got := res.Config.Timeout(); got != 10*time.Minute {
		t.Errorf("Timeout() = %v, want 10m", got)
	}
	if got := res.Config.Hour(); got != 4 {
		t.Errorf("Hour() = %d, want 4", got)
	}
	start, err := res.Config.StartKey()
	if err != nil {
		t.Fatalf("StartKey: %v", err)
	}
	if start.String() != "20251215" {
		t.Errorf("StartKey = %q, want 20251215", start)
	}
}

func TestLoad_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte("version: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "data", "raw")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(sub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Base != root {
		t.Errorf("Base = %q, want %q", res.Base, root)
	}
	if res.Config.Version != 2 {
		t.Errorf("Version = %d, want 2", res.Config.Version)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	dir := t.TempDir()

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Base != dir {
		t.Errorf("Base = %q, want %q", res.Base, dir)
	}
	if got := res.Config.Timeout(); got != DefaultTimeout {
		t.Errorf("Timeout() = %v, want default %v", got, DefaultTimeout)
	}
	if got := res.Config.MaxOutputBytes(); got != DefaultMaxOutput {
		t.Errorf("MaxOutputBytes() = %d, want default %d", got, DefaultMaxOutput)
	}
	if !res.Config.Catchup() {
		t.Error("Catchup() = false, want default true")
	}
	if got := res.Config.DBTBinary(); got != "dbt" {
		t.Errorf("DBTBinary() = %q, want dbt", got)
	}
}

func TestLayout_Defaults(t *testing.T) {
	cfg := &Config{}
	l := cfg.Layout("/srv/medallion")

	want := Layout{
		Base:          "/srv/medallion",
		RawDir:        "/srv/medallion/data/raw",
		CleanDir:      "/srv/medallion/data/clean",
		QualityDir:    "/srv/medallion/data/quality",
		ProjectDir:    "/srv/medallion/dbt",
		ProfilesDir:   "/srv/medallion/profiles",
		WarehousePath: "/srv/medallion/warehouse/medallion.duckdb",
		StatePath:     "/srv/medallion/data/scheduler_state.json",
	}
	if l != want {
		t.Errorf("Layout = %+v, want %+v", l, want)
	}
}

func TestLayout_Overrides(t *testing.T) {
	cfg := &Config{Paths: PathsConfig{
		Raw:       "/mnt/landing",
		Warehouse: "wh/analytics.duckdb",
	}}
	l := cfg.Layout("/srv/medallion")

	if l.RawDir != "/mnt/landing" {
		t.Errorf("RawDir = %q, want /mnt/landing", l.RawDir)
	}
	if l.WarehousePath != "/srv/medallion/wh/analytics.duckdb" {
		t.Errorf("WarehousePath = %q", l.WarehousePath)
	}
	if l.CleanDir != "/srv/medallion/data/clean" {
		t.Errorf("CleanDir = %q, want default", l.CleanDir)
	}
}

func TestCleanCommand_Default(t *testing.T) {
	cfg := &Config{}
	argv := cfg.CleanCommand("/srv/medallion")
	if len(argv) != 2 || argv[0] != "python3" {
		t.Fatalf("CleanCommand = %v", argv)
	}
	if argv[1] != "/srv/medallion/include/clean_transactions.py" {
		t.Errorf("script = %q, want base-resolved path", argv[1])
	}
}

func TestCleanCommand_Configured(t *testing.T) {
	cfg := &Config{Clean: CleanConfig{Command: []string{"clean-transactions", "--strict"}}}
	argv := cfg.CleanCommand("/srv/medallion")
	if len(argv) != 2 || argv[0] != "clean-transactions" || argv[1] != "--strict" {
		t.Errorf("CleanCommand = %v", argv)
	}
}

func TestScheduleDefaults(t *testing.T) {
	cfg := &Config{}
	if got := cfg.Hour(); got != 6 {
		t.Errorf("Hour() = %d, want 6", got)
	}
	start, err := cfg.StartKey()
	if err != nil {
		t.Fatalf("StartKey: %v", err)
	}
	if start.String() != "20251201" {
		t.Errorf("StartKey = %q, want 20251201", start)
	}
}
