package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":8090" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.BackendURL != "http://localhost:8000" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.MaxUploadSize != 10485760 {
		t.Errorf("MaxUploadSize = %d", cfg.MaxUploadSize)
	}
	if cfg.S3Bucket != "" {
		t.Errorf("S3Bucket = %q, want unset", cfg.S3Bucket)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ORDERFOOD_LISTEN", ":9999")
	t.Setenv("ORDERFOOD_POLL_INTERVAL", "5s")
	t.Setenv("ORDERFOOD_S3_BUCKET", "orderfood-images")
	t.Setenv("ORDERFOOD_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9999" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.S3Bucket != "orderfood-images" {
		t.Errorf("S3Bucket = %q", cfg.S3Bucket)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("ORDERFOOD_POLL_INTERVAL", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Fatal("Load accepted a malformed duration")
	}
}
