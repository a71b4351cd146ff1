package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("WS_HEARTBEAT_INTERVAL", "")
	t.Setenv("SHUTDOWN_GRACE_PERIOD", "")

	cfg := Load()
	if cfg.Env != "development" {
		t.Fatalf("expected development default, got %s", cfg.Env)
	}
	if cfg.HTTPAddr != ":5000" {
		t.Fatalf("expected :5000 default, got %s", cfg.HTTPAddr)
	}
	if cfg.WSHeartbeatInterval != 30*time.Second {
		t.Fatalf("unexpected heartbeat default: %v", cfg.WSHeartbeatInterval)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown default: %v", cfg.ShutdownGracePeriod)
	}
	if cfg.CorsAllowedOrigins != nil {
		t.Fatalf("expected nil origins, got %v", cfg.CorsAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://pos.example.com, https://kds.example.com")
	t.Setenv("WS_HEARTBEAT_INTERVAL", "45s")
	t.Setenv("SHUTDOWN_GRACE_PERIOD", "bogus")

	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("expected production, got %s", cfg.Env)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.HTTPAddr)
	}
	if len(cfg.CorsAllowedOrigins) != 2 || cfg.CorsAllowedOrigins[1] != "https://kds.example.com" {
		t.Fatalf("origins not parsed: %v", cfg.CorsAllowedOrigins)
	}
	if cfg.WSHeartbeatInterval != 45*time.Second {
		t.Fatalf("heartbeat override lost: %v", cfg.WSHeartbeatInterval)
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("invalid duration should fall back: %v", cfg.ShutdownGracePeriod)
	}
}
