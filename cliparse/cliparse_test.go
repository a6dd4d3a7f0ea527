// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"testing"
	"time"
)

func TestParseFlags(t *testing.T) {
	cfg, err := ParseFlags([]string{"-p", "8080", "-r", "redis://localhost:6379"})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.RedisURL != "redis://localhost:6379" {
		t.Errorf("Expected redis URL, got %q", cfg.RedisURL)
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DEGRADED_STORE_PATH", "")

	cfg, err := ParseFlags([]string{"-r", "redis://localhost:6379"})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if cfg.Port != 3418 {
		t.Errorf("Expected default port 3418, got %d", cfg.Port)
	}
	if cfg.LockTTL != 3*time.Second {
		t.Errorf("Expected default lock TTL 3s, got %s", cfg.LockTTL)
	}
	if cfg.PresenceTTL != 60*time.Second {
		t.Errorf("Expected default presence TTL 60s, got %s", cfg.PresenceTTL)
	}
	if cfg.HealthFloor != 25 {
		t.Errorf("Expected default health floor 25, got %d", cfg.HealthFloor)
	}
	if cfg.DegradedPath != "" {
		t.Errorf("Expected in-memory degraded store by default, got %q", cfg.DegradedPath)
	}
}

func TestParseFlagsEnvFallback(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_URL", "redis://env-host:6379")
	t.Setenv("DEGRADED_STORE_PATH", "/tmp/degraded.db")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Expected port from env, got %d", cfg.Port)
	}
	if cfg.RedisURL != "redis://env-host:6379" {
		t.Errorf("Expected redis URL from env, got %q", cfg.RedisURL)
	}
	if cfg.DegradedPath != "/tmp/degraded.db" {
		t.Errorf("Expected degraded path from env, got %q", cfg.DegradedPath)
	}
}

func TestParseFlagsFlagBeatsEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_URL", "redis://env-host:6379")

	cfg, err := ParseFlags([]string{"-p", "8080", "-r", "redis://flag-host:6379"})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected flag to beat env, got %d", cfg.Port)
	}
	if cfg.RedisURL != "redis://flag-host:6379" {
		t.Errorf("Expected flag to beat env, got %q", cfg.RedisURL)
	}
}

func TestParseFlagsRequiresRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "")

	if _, err := ParseFlags([]string{"-p", "8080"}); err == nil {
		t.Error("Expected error when no coordination store URL is given")
	}
}

func TestParseFlagsInvalidPortEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	if _, err := ParseFlags([]string{}); err == nil {
		t.Error("Expected error for invalid PORT env variable")
	}
}

func TestParseFlagsTuning(t *testing.T) {
	cfg, err := ParseFlags([]string{
		"-r", "redis://localhost:6379",
		"-lock-ttl", "5s",
		"-state-ttl", "1h",
		"-broadcast-retry", "500ms",
		"-health-floor", "40",
	})
	if err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if cfg.LockTTL != 5*time.Second {
		t.Errorf("Expected lock TTL 5s, got %s", cfg.LockTTL)
	}
	if cfg.StateTTL != time.Hour {
		t.Errorf("Expected state TTL 1h, got %s", cfg.StateTTL)
	}
	if cfg.BroadcastRetry != 500*time.Millisecond {
		t.Errorf("Expected broadcast retry 500ms, got %s", cfg.BroadcastRetry)
	}
	if cfg.HealthFloor != 40 {
		t.Errorf("Expected health floor 40, got %d", cfg.HealthFloor)
	}
}
