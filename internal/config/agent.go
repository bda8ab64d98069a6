package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/vshulcz/netstats/internal/netstats"
)

const (
	defaultMonitorAddr  = "http://localhost:8080"
	defaultTickInterval = time.Second
	defaultRateLimit    = 1
)

// AgentConfig configures the producer process that samples host metrics and ships frames.
type AgentConfig struct {
	Address        string
	Key            string
	TickInterval   time.Duration
	RateLimit      int
	MaxEventValues int
	ConnectionID   uint64
}

// LoadAgentConfig resolves ENV > CLI > defaults.
func LoadAgentConfig(args []string, out io.Writer) (AgentConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.SetOutput(out)

	var addrOpt, keyOpt, connOpt string
	var tickOpt time.Duration
	var limitOpt, maxValuesOpt int

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("monitor address (host:port or URL), default: %s", defaultMonitorAddr))
	fs.StringVar(&keyOpt, "k", "", "secret key for HashSHA256 header")
	fs.DurationVar(&tickOpt, "t", 0, fmt.Sprintf("dispatch tick interval, default: %s", defaultTickInterval))
	fs.IntVar(&limitOpt, "l", 0, fmt.Sprintf("rate limit (max concurrent outgoing frames), default: %d", defaultRateLimit))
	fs.IntVar(&maxValuesOpt, "m", -1, fmt.Sprintf("max event values per dispatch, default: %d", netstats.DefaultMaxNumberOfValues))
	fs.StringVar(&connOpt, "c", "", "connection id stamped on frames, default: none")

	if err := fs.Parse(args); err != nil {
		return AgentConfig{}, err
	}

	addr := normalizeAddressURL(FromEnvOrFlag("ADDRESS", addrOpt, defaultMonitorAddr))
	if _, err := url.ParseRequestURI(addr); err != nil {
		return AgentConfig{}, fmt.Errorf("invalid monitor address: %q", addr)
	}

	return AgentConfig{
		Address:        addr,
		Key:            FromEnvOrFlag("KEY", keyOpt, ""),
		TickInterval:   FromEnvOrFlagDuration("TICK_INTERVAL", tickOpt, defaultTickInterval),
		RateLimit:      FromEnvOrFlagInt("RATE_LIMIT", limitOpt, 0, defaultRateLimit, 1),
		MaxEventValues: FromEnvOrFlagInt("MAX_EVENT_VALUES", maxValuesOpt, -1, netstats.DefaultMaxNumberOfValues, 0),
		ConnectionID:   FromEnvOrFlagUint64("CONNECTION_ID", connOpt, netstats.NoConnection),
	}, nil
}

func normalizeAddressURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultMonitorAddr
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	if strings.HasPrefix(s, ":") {
		return "http://localhost" + s
	}
	return "http://" + s
}
