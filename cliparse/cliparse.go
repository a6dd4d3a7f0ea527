// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          int
	RedisURL      string
	DegradedPath  string // sqlite file for the degraded store; empty = in-memory
	TicketBaseURL string // ticket importer endpoint; empty disables fetch-by-key

	LockTTL         time.Duration
	StateTTL        time.Duration
	PresenceTTL     time.Duration
	BroadcastRetry  time.Duration
	HealthInterval  time.Duration
	HealthFloor     int
}

// ParseFlags validates flags and applies environment fallbacks
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("planning-poker", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.RedisURL, "r", "", "Coordination store URL (redis://...)")
	fs.StringVar(&cfg.DegradedPath, "degraded-path", "", "Degraded store sqlite file (default: in-memory)")
	fs.StringVar(&cfg.TicketBaseURL, "ticket-url", "", "Ticket importer base URL")

	// Tuning knobs - the defaults are the contract for most deployments
	fs.DurationVar(&cfg.LockTTL, "lock-ttl", 3*time.Second, "Distributed lock TTL")
	fs.DurationVar(&cfg.StateTTL, "state-ttl", 2*time.Hour, "Session state TTL")
	fs.DurationVar(&cfg.PresenceTTL, "presence-ttl", 60*time.Second, "Presence entry TTL")
	fs.DurationVar(&cfg.BroadcastRetry, "broadcast-retry", 2*time.Second, "Redundant broadcast delay")
	fs.DurationVar(&cfg.HealthInterval, "health-interval", 30*time.Second, "Health check interval")
	fs.IntVar(&cfg.HealthFloor, "health-floor", 25, "Health score floor before hard reset")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3418 // default
		}
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, errors.New("coordination store URL required (use -r or REDIS_URL env)")
	}

	if cfg.DegradedPath == "" {
		cfg.DegradedPath = os.Getenv("DEGRADED_STORE_PATH")
	}
	if cfg.TicketBaseURL == "" {
		cfg.TicketBaseURL = os.Getenv("TICKET_BASE_URL")
	}

	return cfg, nil
}
