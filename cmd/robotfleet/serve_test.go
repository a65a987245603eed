package main

import (
	"os"
	"path/filepath"
	"testing"

	"robotfleet/internal/telemetry"
)

func TestNewSourceServerGenerated(t *testing.T) {
	srv, err := newSourceServer("", 40, 1)
	if err != nil {
		t.Fatalf("newSourceServer: %v", err)
	}
	if n := len(srv.Fleet()); n != telemetry.MaxSnapshotSize {
		t.Fatalf("fleet size = %d, want %d", n, telemetry.MaxSnapshotSize)
	}
}

func TestNewSourceServerFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robots.json")
	fixture := `[{"Robot ID":"R1","Location Coordinates":[48.2,16.4],"Online/Offline":true,"Battery Percentage":55,"CPU Usage":10,"RAM Consumption":512,"Last Updated":"2024-01-01 10:00:00"}]`
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}
	srv, err := newSourceServer(path, 0, 1)
	if err != nil {
		t.Fatalf("newSourceServer: %v", err)
	}
	fleet := srv.Fleet()
	if len(fleet) != 1 || fleet[0].ID != "R1" || fleet[0].BatteryPercent != 55 {
		t.Fatalf("unexpected fleet: %+v", fleet)
	}

	if _, err := newSourceServer(filepath.Join(t.TempDir(), "missing.json"), 0, 1); err == nil {
		t.Fatalf("expected error for missing fixture")
	}
}

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("max_robots: 12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rootCmd.SetArgs([]string{"validate", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := os.WriteFile(path, []byte("max_robots: 99\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rootCmd.SetArgs([]string{"validate", path})
	if err := rootCmd.Execute(); err == nil {
		t.Fatalf("expected validation error")
	}
}
