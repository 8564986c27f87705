package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.GatewayMaxAttempts != 5 {
		t.Errorf("expected 5 gateway attempts, got %d", cfg.GatewayMaxAttempts)
	}
	if cfg.GatewayBaseDelay != 500*time.Millisecond {
		t.Errorf("expected 500ms base delay, got %s", cfg.GatewayBaseDelay)
	}
	if cfg.PlannerBaseURL != "http://127.0.0.1:5000" {
		t.Errorf("unexpected planner base URL %s", cfg.PlannerBaseURL)
	}
	if cfg.VehicleCapacity != 20000 || cfg.MaxFleetSize != 100 || cfg.TimeLimitSeconds != 30 {
		t.Errorf("unexpected fleet tuning defaults: %d/%d/%d", cfg.VehicleCapacity, cfg.MaxFleetSize, cfg.TimeLimitSeconds)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GATEWAY_MAX_ATTEMPTS", "3")
	t.Setenv("GATEWAY_BASE_DELAY", "2s")
	t.Setenv("GEMINI_SDK_FALLBACK", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.GatewayMaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.GatewayMaxAttempts)
	}
	if cfg.GatewayBaseDelay != 2*time.Second {
		t.Errorf("expected 2s base delay, got %s", cfg.GatewayBaseDelay)
	}
	if cfg.GeminiSDKFallback {
		t.Error("expected SDK fallback disabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("GATEWAY_MAX_ATTEMPTS", "many")
	t.Setenv("SESSION_IDLE_TTL", "soon")

	cfg := Load()

	if cfg.GatewayMaxAttempts != 5 {
		t.Errorf("expected default attempts on parse failure, got %d", cfg.GatewayMaxAttempts)
	}
	if cfg.SessionIdleTTL != 2*time.Hour {
		t.Errorf("expected default TTL on parse failure, got %s", cfg.SessionIdleTTL)
	}
}
