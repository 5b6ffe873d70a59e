package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	Discovery       time.Duration // Timeout for overlay network status queries
	Executor        time.Duration // Timeout for one node's executor invocation
	NodeReady       time.Duration // Timeout for the post-provision readiness check
	Drain           time.Duration // Timeout for draining a node before removal
	RefreshInterval time.Duration // Snapshot refresh interval for watch mode

	RetryMaxAttempts  int           // Maximum number of retry attempts
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - KUBANI_TIMEOUT_DISCOVERY (default: 10s)
//   - KUBANI_TIMEOUT_EXECUTOR (default: 30m)
//   - KUBANI_TIMEOUT_NODE_READY (default: 5m)
//   - KUBANI_TIMEOUT_DRAIN (default: 5m)
//   - KUBANI_REFRESH_INTERVAL (default: 5s)
//   - KUBANI_RETRY_MAX_ATTEMPTS (default: 5)
//   - KUBANI_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Discovery:         parseDuration("KUBANI_TIMEOUT_DISCOVERY", 10*time.Second),
		Executor:          parseDuration("KUBANI_TIMEOUT_EXECUTOR", 30*time.Minute),
		NodeReady:         parseDuration("KUBANI_TIMEOUT_NODE_READY", 5*time.Minute),
		Drain:             parseDuration("KUBANI_TIMEOUT_DRAIN", 5*time.Minute),
		RefreshInterval:   parseDuration("KUBANI_REFRESH_INTERVAL", 5*time.Second),
		RetryMaxAttempts:  parseInt("KUBANI_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("KUBANI_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
