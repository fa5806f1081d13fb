package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8090" {
		t.Fatalf("BindAddr = %q, want :8090", cfg.BindAddr)
	}
	if cfg.AgentBaseURL != "http://localhost:8091" {
		t.Fatalf("AgentBaseURL = %q", cfg.AgentBaseURL)
	}
	if cfg.BridgeBaseURL != "http://localhost:8092" {
		t.Fatalf("BridgeBaseURL = %q", cfg.BridgeBaseURL)
	}
	if cfg.WakeLockTTL != 8*time.Second {
		t.Fatalf("WakeLockTTL = %v, want 8s", cfg.WakeLockTTL)
	}
	if cfg.SessionJanitorInterval != 5*time.Second {
		t.Fatalf("SessionJanitorInterval = %v, want 5s", cfg.SessionJanitorInterval)
	}
	if cfg.StrictTextEncoding {
		t.Fatalf("StrictTextEncoding should default to false")
	}
}

func TestLoadWakeTTLFromMillis(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("WAKE_LOCK_TTL_MS", "12000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WakeLockTTL != 12*time.Second {
		t.Fatalf("WakeLockTTL = %v, want 12s", cfg.WakeLockTTL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"WAKE_LOCK_TTL_MS":             "not-a-number",
		"AGENT_TIMEOUT":                "soon",
		"APP_SESSION_IDLE_TIMEOUT":     "1s",
		"APP_SESSION_JANITOR_INTERVAL": "100ms",
		"APP_ALLOW_ANY_ORIGIN":         "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%q succeeded, want error", key, value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_SESSION_IDLE_TIMEOUT",
		"APP_SESSION_JANITOR_INTERVAL",
		"AGENT_BASE_URL",
		"AGENT_TIMEOUT",
		"HA_BRIDGE_BASE_URL",
		"PROBE_TIMEOUT",
		"WAKE_LOCK_TTL_MS",
		"WAKE_SWEEP_INTERVAL",
		"DATABASE_URL",
		"TEXT_ENCODING_STRICT",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}
