package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()
	c := Load()
	if c.SaveFile != "demo.ctf" {
		t.Errorf("SaveFile default: got %q", c.SaveFile)
	}
	if c.RPM != 60 {
		t.Errorf("RPM default: got %v", c.RPM)
	}
	if c.MetricsAddr != "" {
		t.Errorf("MetricsAddr default should be empty: got %q", c.MetricsAddr)
	}
	if c.FrameInterval != 16*time.Millisecond {
		t.Errorf("FrameInterval default: got %v", c.FrameInterval)
	}
}

func TestLoadOverrides(t *testing.T) {
	os.Clearenv()
	os.Setenv("CROCKET_SAVE_FILE", "session.ctf")
	os.Setenv("CROCKET_RPM", "120")
	os.Setenv("CROCKET_METRICS_ADDR", ":9100")
	os.Setenv("CROCKET_JOURNAL_PATH", "/tmp/journal.sqlite")
	os.Setenv("CROCKET_FRAME_INTERVAL", "33ms")
	c := Load()
	if c.SaveFile != "session.ctf" {
		t.Errorf("SaveFile: got %q", c.SaveFile)
	}
	if c.RPM != 120 {
		t.Errorf("RPM: got %v", c.RPM)
	}
	if c.MetricsAddr != ":9100" {
		t.Errorf("MetricsAddr: got %q", c.MetricsAddr)
	}
	if c.JournalPath != "/tmp/journal.sqlite" {
		t.Errorf("JournalPath: got %q", c.JournalPath)
	}
	if c.FrameInterval != 33*time.Millisecond {
		t.Errorf("FrameInterval: got %v", c.FrameInterval)
	}
}

func TestLoadInvalidRPMFallsBackToDefault(t *testing.T) {
	os.Clearenv()
	os.Setenv("CROCKET_RPM", "not-a-number")
	c := Load()
	if c.RPM != 60 {
		t.Errorf("RPM with invalid env: got %v, want default 60", c.RPM)
	}
}
