package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the assistant gateway.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	AgentBaseURL  string
	BridgeBaseURL string
	AgentTimeout  time.Duration
	ProbeTimeout  time.Duration

	WakeLockTTL       time.Duration
	WakeSweepInterval time.Duration

	SessionIdleTimeout     time.Duration
	SessionJanitorInterval time.Duration

	DatabaseURL string

	StrictTextEncoding bool
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:               envOrDefault("APP_BIND_ADDR", ":8090"),
		MetricsNamespace:       envOrDefault("APP_METRICS_NAMESPACE", "assistant_gateway"),
		AgentBaseURL:           envOrDefault("AGENT_BASE_URL", "http://localhost:8091"),
		BridgeBaseURL:          envOrDefault("HA_BRIDGE_BASE_URL", "http://localhost:8092"),
		DatabaseURL:            trimSpaceEnv("DATABASE_URL"),
		ShutdownTimeout:        15 * time.Second,
		AgentTimeout:           15 * time.Second,
		ProbeTimeout:           2 * time.Second,
		WakeLockTTL:            8 * time.Second,
		WakeSweepInterval:      30 * time.Second,
		SessionIdleTimeout:     30 * time.Minute,
		SessionJanitorInterval: 5 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AgentTimeout, err = durationFromEnv("AGENT_TIMEOUT", cfg.AgentTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ProbeTimeout, err = durationFromEnv("PROBE_TIMEOUT", cfg.ProbeTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.WakeSweepInterval, err = durationFromEnv("WAKE_SWEEP_INTERVAL", cfg.WakeSweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionIdleTimeout, err = durationFromEnv("APP_SESSION_IDLE_TIMEOUT", cfg.SessionIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionJanitorInterval, err = durationFromEnv("APP_SESSION_JANITOR_INTERVAL", cfg.SessionJanitorInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.StrictTextEncoding, err = boolFromEnv("TEXT_ENCODING_STRICT", cfg.StrictTextEncoding)
	if err != nil {
		return Config{}, err
	}

	// Kept in milliseconds on the wire for parity with the wake endpoints;
	// out-of-range values are clamped by the arbiter, not rejected here.
	ttlMS, err := intFromEnv("WAKE_LOCK_TTL_MS", int(cfg.WakeLockTTL.Milliseconds()))
	if err != nil {
		return Config{}, err
	}
	cfg.WakeLockTTL = time.Duration(ttlMS) * time.Millisecond

	if cfg.AgentTimeout <= 0 {
		return Config{}, fmt.Errorf("AGENT_TIMEOUT must be positive")
	}
	if cfg.ProbeTimeout <= 0 {
		return Config{}, fmt.Errorf("PROBE_TIMEOUT must be positive")
	}
	if cfg.WakeSweepInterval < time.Second {
		return Config{}, fmt.Errorf("WAKE_SWEEP_INTERVAL must be at least 1s")
	}
	if cfg.SessionIdleTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_IDLE_TIMEOUT must be at least 5s")
	}
	if cfg.SessionJanitorInterval < time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_JANITOR_INTERVAL must be at least 1s")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimSpaceEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimSpaceEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimSpaceEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimSpaceEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
