package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	capfile "github.com/vshulcz/netstats/internal/adapters/capture/file"
	"github.com/vshulcz/netstats/internal/config"
	"github.com/vshulcz/netstats/internal/domain"
	"github.com/vshulcz/netstats/internal/netstats"
	"github.com/vshulcz/netstats/internal/netstats/codec"
)

func testFrame(t *testing.T, connID uint64) []byte {
	t.Helper()
	reg := netstats.NewRegistry()
	enum, err := netstats.RegisterNetworkMetrics(reg)
	require.NoError(t, err)
	creg := codec.NewRegistry()
	require.NoError(t, codec.RegisterStockEvents(creg))

	c, err := netstats.NewBuilder().
		WithConnectionID(connID).
		AddCounter(enum.ID(netstats.BytesReceived), 1500).
		AddGauge(enum.ID(netstats.PacketLoss), 0.01).
		Build()
	require.NoError(t, err)
	frame, err := codec.NewSerializer(creg).Marshal(c)
	require.NoError(t, err)
	return frame
}

func baseConfig() config.MonitorConfig {
	return config.MonitorConfig{
		Address:      "127.0.0.1:0",
		Locale:       "en",
		TickInterval: 10 * time.Millisecond,
		CaptureLimit: 4,
	}
}

func TestBuild_IngestAndAudit(t *testing.T) {
	cfg := baseConfig()
	cfg.AuditFile = filepath.Join(t.TempDir(), "audit", "frames.log")

	a, err := build(t.Context(), cfg, zap.NewNop())
	require.NoError(t, err)

	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/frames", "application/octet-stream", bytes.NewReader(testFrame(t, 5)))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/captures")
	require.NoError(t, err)
	var captures []domain.Capture
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&captures))
	resp.Body.Close()
	require.Len(t, captures, 1)
	assert.Equal(t, uint64(5), captures[0].ConnectionID)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Contains(t, body.String(), `netstats_counter_total{stat="NetworkMetric.BytesReceived"} 1500`)

	require.NoError(t, a.Close())
	raw, err := os.ReadFile(cfg.AuditFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "NetworkMetric.BytesReceived")
}

func TestBuild_ReplaysCaptureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captures.bin")
	st := capfile.New(path)
	for i := range 2 {
		require.NoError(t, st.Save(t.Context(), domain.Capture{
			ReceivedAt:   time.Now().Add(time.Duration(i) * time.Second),
			SessionID:    "previous",
			ConnectionID: 1,
			MetricCount:  2,
			Frame:        testFrame(t, 1),
		}))
	}

	cfg := baseConfig()
	cfg.CaptureFile = path
	cfg.Replay = true

	core, logs := observer.New(zapcore.InfoLevel)
	a, err := build(t.Context(), cfg, zap.New(core))
	require.NoError(t, err)
	defer a.Close()

	entries := logs.FilterMessage("replay ok").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["replayed"])
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.MonitorConfig)
		want   string
	}{
		{
			name:   "missing display configuration",
			mutate: func(c *config.MonitorConfig) { c.DisplayConfig = filepath.Join(t.TempDir(), "missing.json") },
			want:   "load display configuration",
		},
		{
			name:   "invalid audit url",
			mutate: func(c *config.MonitorConfig) { c.AuditURL = "not a url" },
			want:   "init audit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)
			_, err := build(t.Context(), cfg, zap.NewNop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	a, err := build(t.Context(), baseConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: a.handler, ReadHeaderTimeout: time.Second}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, srv, func() error { return srv.Serve(ln) }) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/v1/display")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServe_InvalidTickInterval(t *testing.T) {
	cfg := baseConfig()
	cfg.TickInterval = 0
	a, err := build(t.Context(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: a.handler, ReadHeaderTimeout: time.Second}

	err = a.serve(t.Context(), srv, func() error { return srv.Serve(ln) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick interval")
}
