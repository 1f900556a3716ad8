package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	conf, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if conf.Tracking.TickPeriod != 3*time.Second {
		t.Fatalf("expected default tick period, got %v", conf.Tracking.TickPeriod)
	}
	if conf.Control.ListenAddr != "127.0.0.1:3333" {
		t.Fatalf("expected loopback listen addr, got %s", conf.Control.ListenAddr)
	}
	if conf.Device.Path != "-" {
		t.Fatalf("expected stdin device, got %s", conf.Device.Path)
	}
	if conf.Log.Level != "info" {
		t.Fatalf("expected info level, got %s", conf.Log.Level)
	}
	src := conf.Device.Source
	if !src.HighAccuracy || src.MaxCacheAge != 0 || src.AcquisitionTimeout != 5*time.Second {
		t.Fatalf("unexpected source defaults %+v", src)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GPSLOGGER_TRACKING_TICK_PERIOD", "0s")
	t.Setenv("GPSLOGGER_DEVICE_PATH", "/dev/ttyUSB0")
	t.Setenv("GPSLOGGER_DEVICE_SOURCE_HIGH_ACCURACY", "false")
	t.Setenv("GPSLOGGER_CONTROL_ENABLED", "true")
	t.Setenv("GPSLOGGER_LOG_LEVEL", "debug")

	conf, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if conf.Tracking.TickPeriod != 0 {
		t.Fatalf("expected per-sample cadence, got %v", conf.Tracking.TickPeriod)
	}
	if conf.Device.Path != "/dev/ttyUSB0" {
		t.Fatalf("expected override device path")
	}
	if conf.Device.Source.HighAccuracy {
		t.Fatalf("expected high accuracy override")
	}
	if !conf.Control.Enabled {
		t.Fatalf("expected control enabled")
	}
	if conf.Log.Level != "debug" {
		t.Fatalf("expected override level")
	}
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "gpslogger.yaml")
	body := "tracking:\n  tick_period: 5s\ndevice:\n  source:\n    max_cache_age: 10s\n"
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	conf, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if conf.Tracking.TickPeriod != 5*time.Second {
		t.Fatalf("expected 5s, got %v", conf.Tracking.TickPeriod)
	}
	if conf.Device.Source.MaxCacheAge != 10*time.Second {
		t.Fatalf("expected 10s, got %v", conf.Device.Source.MaxCacheAge)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("GPSLOGGER_LOG_LEVEL", "loud")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
