package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("VEO_POLL_INTERVAL_SECONDS", "")
	t.Setenv("VEO_POLL_MAX_ATTEMPTS", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Fatalf("PollInterval = %v, want 10s", cfg.PollInterval)
	}
	if cfg.PollMaxAttempts != 0 {
		t.Fatalf("PollMaxAttempts = %d, want 0 (unbounded)", cfg.PollMaxAttempts)
	}
	if cfg.VeoModel != "veo-2.0-generate-001" {
		t.Fatalf("VeoModel = %q", cfg.VeoModel)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("AllowedOrigins = %#v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("VEO_POLL_INTERVAL_SECONDS", "2")
	t.Setenv("VEO_POLL_MAX_ATTEMPTS", "30")
	t.Setenv("MAX_UPLOAD_MB", "8")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("PollInterval = %v, want 2s", cfg.PollInterval)
	}
	if cfg.PollMaxAttempts != 30 {
		t.Fatalf("PollMaxAttempts = %d, want 30", cfg.PollMaxAttempts)
	}
	if cfg.MaxUploadBytes != 8<<20 {
		t.Fatalf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 8<<20)
	}
	want := []string{"https://app.example.com", "https://staging.example.com"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %#v, want %#v", cfg.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Fatalf("AllowedOrigins[%d] = %q, want %q", i, cfg.AllowedOrigins[i], want[i])
		}
	}
}

func TestLoadConfigNegativePollSettings(t *testing.T) {
	t.Setenv("VEO_POLL_INTERVAL_SECONDS", "-5")
	t.Setenv("VEO_POLL_MAX_ATTEMPTS", "-1")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Fatalf("PollInterval = %v, want fallback 10s", cfg.PollInterval)
	}
	if cfg.PollMaxAttempts != 0 {
		t.Fatalf("PollMaxAttempts = %d, want 0", cfg.PollMaxAttempts)
	}
}
