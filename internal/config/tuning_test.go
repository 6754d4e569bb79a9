package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadTuningDefaults(t *testing.T) {
	tun, err := LoadTuning("")
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}
	if tun.TriggerThreshold != 3.0 {
		t.Errorf("trigger threshold = %g, want 3.0", tun.TriggerThreshold)
	}
	if tun.ChangeThreshold != 7.0 {
		t.Errorf("change threshold = %g, want 7.0", tun.ChangeThreshold)
	}
	if tun.Tier3TTL != 24*time.Hour {
		t.Errorf("tier3 ttl = %v, want 24h", tun.Tier3TTL)
	}
}

func TestLoadTuningOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := "trigger_threshold: 4.5\nbatch_size: 250\ntier2_ttl: 30m\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	tun, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}
	if tun.TriggerThreshold != 4.5 {
		t.Errorf("trigger threshold = %g, want 4.5", tun.TriggerThreshold)
	}
	if tun.BatchSize != 250 {
		t.Errorf("batch size = %d, want 250", tun.BatchSize)
	}
	if tun.Tier2TTL != 30*time.Minute {
		t.Errorf("tier2 ttl = %v, want 30m", tun.Tier2TTL)
	}
	// Untouched fields keep their defaults.
	if tun.MaxWorkers != 4 {
		t.Errorf("max workers = %d, want 4", tun.MaxWorkers)
	}
}

func TestLoadTuningRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("batch_size: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuning(path); err == nil {
		t.Fatal("expected error for zero batch size")
	}
}
