package misc

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// GetDuration reads key as whole seconds or Go duration syntax. Non-positive values
// yield 0; missing or unparsable values yield def.
func GetDuration(key string, def time.Duration) time.Duration {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n <= 0 {
			return 0
		}
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		if d <= 0 {
			return 0
		}
		return d
	}
	return def
}

// GetBool reads key as a yes/no flag.
func GetBool(key string, def bool) bool {
	v, ok := lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y":
		return true
	case "0", "false", "f", "no", "n":
		return false
	default:
		return def
	}
}

// GetInt reads key as a decimal integer.
func GetInt(key string, def int) (int, bool) {
	v, ok := lookup(key)
	if !ok {
		return def, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, false
	}
	return n, true
}

// GetUint64 reads key as an unsigned decimal integer.
func GetUint64(key string, def uint64) (uint64, bool) {
	v, ok := lookup(key)
	if !ok {
		return def, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def, false
	}
	return n, true
}
