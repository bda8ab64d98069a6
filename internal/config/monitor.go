package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	defaultListenAddr          = ":8080"
	defaultCaptureFile         = "netstats-capture.bin"
	defaultMonitorTickInterval = 100 * time.Millisecond
	defaultCaptureLimit        = 1024
	defaultLocale              = "en"
)

// MonitorConfig configures the consumer process that receives frames and renders the display.
type MonitorConfig struct {
	Address       string
	DSN           string
	CaptureFile   string
	Key           string
	DisplayConfig string
	Locale        string
	AuditFile     string
	AuditURL      string
	TickInterval  time.Duration
	CaptureLimit  int
	Replay        bool
}

// LoadMonitorConfig resolves ENV > CLI > defaults.
func LoadMonitorConfig(args []string, out io.Writer) (MonitorConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	fs.SetOutput(out)

	var addrOpt, dsnOpt, fileOpt, keyOpt, displayOpt, localeOpt, auditFileOpt, auditURLOpt string
	var tickOpt time.Duration
	var limitOpt int
	var replayOpt bool

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("HTTP listen address, default: %s", defaultListenAddr))
	fs.StringVar(&dsnOpt, "d", "", "DATABASE_DSN for the Postgres capture store")
	fs.StringVar(&fileOpt, "f", "", fmt.Sprintf("capture file path, default: %s", defaultCaptureFile))
	fs.StringVar(&keyOpt, "k", "", "secret key for HashSHA256 verification")
	fs.StringVar(&displayOpt, "c", "", "display configuration JSON file, default: built-in")
	fs.StringVar(&localeOpt, "locale", "", fmt.Sprintf("display locale, default: %s", defaultLocale))
	fs.StringVar(&auditFileOpt, "audit-file", "", "append frame audit events to this file")
	fs.StringVar(&auditURLOpt, "audit-url", "", "POST frame audit events to this URL")
	fs.DurationVar(&tickOpt, "t", 0, fmt.Sprintf("display tick interval, default: %s", defaultMonitorTickInterval))
	fs.IntVar(&limitOpt, "n", 0, fmt.Sprintf("in-memory capture limit, default: %d", defaultCaptureLimit))
	fs.BoolVar(&replayOpt, "r", false, "replay the capture file on start")

	if err := fs.Parse(args); err != nil {
		return MonitorConfig{}, err
	}

	addr := normalizeListenAddr(FromEnvOrFlag("ADDRESS", addrOpt, defaultListenAddr))
	if _, port, err := net.SplitHostPort(addr); err != nil || port == "" {
		return MonitorConfig{}, fmt.Errorf("invalid listen address: %q", addr)
	}

	return MonitorConfig{
		Address:       addr,
		DSN:           FromEnvOrFlag("DATABASE_DSN", dsnOpt, ""),
		CaptureFile:   FromEnvOrFlag("CAPTURE_FILE", fileOpt, defaultCaptureFile),
		Key:           FromEnvOrFlag("KEY", keyOpt, ""),
		DisplayConfig: FromEnvOrFlag("DISPLAY_CONFIG", displayOpt, ""),
		Locale:        FromEnvOrFlag("LOCALE", localeOpt, defaultLocale),
		AuditFile:     FromEnvOrFlag("AUDIT_FILE", auditFileOpt, ""),
		AuditURL:      FromEnvOrFlag("AUDIT_URL", auditURLOpt, ""),
		TickInterval:  FromEnvOrFlagDuration("TICK_INTERVAL", tickOpt, defaultMonitorTickInterval),
		CaptureLimit:  FromEnvOrFlagInt("CAPTURE_LIMIT", limitOpt, 0, defaultCaptureLimit, 1),
		Replay:        FromEnvOrFlagBool("REPLAY", replayOpt, false),
	}, nil
}

func normalizeListenAddr(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultListenAddr
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			return u.Host
		}
	}
	if !strings.Contains(s, ":") {
		return ":" + s
	}
	return s
}
