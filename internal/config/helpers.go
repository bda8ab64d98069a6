package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vshulcz/netstats/internal/misc"
)

// FromEnvOrFlag returns the environment value when present, otherwise falls back to a CLI flag then default.
func FromEnvOrFlag(envKey, flagVal, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if v := strings.TrimSpace(flagVal); v != "" {
		return v
	}
	return def
}

// FromEnvOrFlagBool merges boolean values from ENV and flags (defaulting to def).
func FromEnvOrFlagBool(envKey string, flagVal, def bool) bool {
	if ev := strings.TrimSpace(os.Getenv(envKey)); ev != "" {
		return misc.GetBool(envKey, def)
	}
	if flagVal {
		return true
	}
	return def
}

// FromEnvOrFlagInt resolves integer values with minimum validation.
// A flag equal to unset is treated as not given.
func FromEnvOrFlagInt(envKey string, flagVal, unset, def, min int) int {
	if n, ok := misc.GetInt(envKey, def); ok && n >= min {
		return n
	}
	if flagVal != unset && flagVal >= min {
		return flagVal
	}
	return def
}

// FromEnvOrFlagUint64 resolves an unsigned value; an empty flag means not given.
func FromEnvOrFlagUint64(envKey, flagVal string, def uint64) uint64 {
	if n, ok := misc.GetUint64(envKey, def); ok {
		return n
	}
	if n, err := strconv.ParseUint(strings.TrimSpace(flagVal), 10, 64); err == nil {
		return n
	}
	return def
}

// FromEnvOrFlagDuration reads a positive duration from ENV (seconds or Go syntax), then the flag,
// then def. Non-positive values are ignored.
func FromEnvOrFlagDuration(envKey string, flagVal, def time.Duration) time.Duration {
	if ev := strings.TrimSpace(os.Getenv(envKey)); ev != "" {
		if d := misc.GetDuration(envKey, 0); d > 0 {
			return d
		}
	}
	if flagVal > 0 {
		return flagVal
	}
	return def
}
