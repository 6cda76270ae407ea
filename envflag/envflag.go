// Package envflag supplies flag defaults from the environment, so every
// command can be configured either way.
package envflag

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func String(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func Int(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return i
		}
	}
	return defaultVal
}

func Duration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// Bool accepts true, 1 and yes; any other non-empty value is false.
func Bool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes":
			return true
		}
		return false
	}
	return defaultVal
}

// ListenAddr honours the PORT variable hosting platforms set, falling back
// to def when it is absent.
func ListenAddr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return def
}
