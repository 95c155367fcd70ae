package config_test

import (
	"os"
	"testing"

	"github.com/docpadron/docpadron/internal/config"
)

func TestLoad_DefaultsApplied(t *testing.T) {
	f, err := os.CreateTemp("", "docpadron-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString("drive_id: 0AAbCdEf\nemployees_folder_id: folder-123\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg, err := config.Load(f.Name())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DriveID != "0AAbCdEf" {
		t.Errorf("drive_id: got %q", cfg.DriveID)
	}
	if cfg.HTTPAddr == "" {
		t.Error("expected default http_addr to be set")
	}
	if cfg.Worker.PollIntervalSecs != 30 {
		t.Errorf("poll_interval_secs default: got %d", cfg.Worker.PollIntervalSecs)
	}
	if cfg.Worker.BatchSize != 5 {
		t.Errorf("batch_size default: got %d", cfg.Worker.BatchSize)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Worker.MaxWorkers != 5 {
		t.Errorf("max_workers default: got %d", cfg.Worker.MaxWorkers)
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	f, err := os.CreateTemp("", "docpadron-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString("no_such_field: true\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := config.Load(f.Name()); err == nil {
		t.Error("expected error for unknown field")
	}
}
