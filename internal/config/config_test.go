package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_PORT", "")
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("PROGRESS_ACK_TIMEOUT_SECONDS", "")
	t.Setenv("PROGRESS_BUFFER_SIZE", "")

	cfg := Load()
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default api port 8080, got %q", cfg.APIPort)
	}
	if cfg.NATSSubject != "sessions.created" {
		t.Fatalf("expected default subject sessions.created, got %q", cfg.NATSSubject)
	}
	if cfg.MaxUploadBytes != 100<<20 {
		t.Fatalf("expected default upload limit 100 MiB, got %d", cfg.MaxUploadBytes)
	}
	if cfg.ProgressAckTimeoutSecs != 30 {
		t.Fatalf("expected default ack timeout 30s, got %d", cfg.ProgressAckTimeoutSecs)
	}
	if cfg.ProgressBufferSize != 256 {
		t.Fatalf("expected default progress buffer 256, got %d", cfg.ProgressBufferSize)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "250")
	t.Setenv("API_RATE_LIMIT_RPS", "12.5")
	t.Setenv("API_MAX_CONCURRENT", "8")
	t.Setenv("PROGRESS_ACK_TIMEOUT_SECONDS", "5")

	cfg := Load()
	if cfg.MaxUploadBytes != 250<<20 {
		t.Fatalf("expected upload limit 250 MiB, got %d", cfg.MaxUploadBytes)
	}
	if cfg.APIRateLimitRPS != 12.5 {
		t.Fatalf("expected rate limit 12.5 rps, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.APIMaxConcurrent != 8 {
		t.Fatalf("expected max concurrent 8, got %d", cfg.APIMaxConcurrent)
	}
	if cfg.ProgressAckTimeoutSecs != 5 {
		t.Fatalf("expected ack timeout 5s, got %d", cfg.ProgressAckTimeoutSecs)
	}
}

func TestLoadFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "not-a-number")
	t.Setenv("API_RATE_LIMIT_RPS", "fast")

	cfg := Load()
	if cfg.MaxUploadBytes != 100<<20 {
		t.Fatalf("expected fallback upload limit, got %d", cfg.MaxUploadBytes)
	}
	if cfg.APIRateLimitRPS != 50 {
		t.Fatalf("expected fallback rate limit, got %v", cfg.APIRateLimitRPS)
	}
}
