package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("POLICY_PATH", "")
	t.Setenv("API_RATE_LIMIT_RPS", "")

	cfg := Load()
	if cfg.NATSSubject != "claims.submitted" {
		t.Fatalf("expected default subject claims.submitted, got %q", cfg.NATSSubject)
	}
	if cfg.MaxUploadMB != 25 {
		t.Fatalf("expected default upload cap 25MB, got %d", cfg.MaxUploadMB)
	}
	if cfg.PolicyPath != "./configs/policy_terms.json" {
		t.Fatalf("expected default policy path, got %q", cfg.PolicyPath)
	}
	if cfg.APIRateLimitRPS != 0 {
		t.Fatalf("expected rate limiting disabled by default, got %d", cfg.APIRateLimitRPS)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9999")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("API_RATE_LIMIT_RPS", "10")
	t.Setenv("API_RATE_LIMIT_BURST", "20")

	cfg := Load()
	if cfg.APIPort != "9999" {
		t.Fatalf("expected port override, got %q", cfg.APIPort)
	}
	if cfg.MaxUploadMB != 5 {
		t.Fatalf("expected upload cap 5MB, got %d", cfg.MaxUploadMB)
	}
	if cfg.APIRateLimitRPS != 10 || cfg.APIRateLimitBurst != 20 {
		t.Fatalf("expected rate limit overrides, got rps=%d burst=%d", cfg.APIRateLimitRPS, cfg.APIRateLimitBurst)
	}
}

func TestLoadFallsBackOnBadInt(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "not-a-number")

	cfg := Load()
	if cfg.MaxUploadMB != 25 {
		t.Fatalf("expected fallback for malformed MAX_UPLOAD_MB, got %d", cfg.MaxUploadMB)
	}
}
