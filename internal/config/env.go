// Package config reads typed configuration values from the environment,
// loading the nearest .env file first.
package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/genregod/ChipWhisperer/internal/env"
)

var ensureOnce sync.Once

func lookup(key string) (string, bool) {
	ensureOnce.Do(func() {
		_ = env.Ensure()
	})
	val := strings.TrimSpace(os.Getenv(key))
	return val, val != ""
}

// String returns the trimmed environment variable, or fallback when unset
// or blank.
func String(key, fallback string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return fallback
}

// Duration parses a time duration from the environment, falling back when
// unset or unparseable.
func Duration(key string, fallback time.Duration) time.Duration {
	if val, ok := lookup(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
