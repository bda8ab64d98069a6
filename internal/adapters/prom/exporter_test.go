package prom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vshulcz/netstats/internal/netstats"
)

func setup(t *testing.T) (*Exporter, netstats.Enum[netstats.NetworkMetric]) {
	t.Helper()
	reg := netstats.NewRegistry()
	e, err := netstats.RegisterNetworkMetrics(reg)
	require.NoError(t, err)
	return New(reg), e
}

func TestExporter_Notify(t *testing.T) {
	ex, e := setup(t)
	b := netstats.NewBuilder().
		AddCounter(e.ID(netstats.BytesSent), 100).
		AddGauge(e.ID(netstats.CPUUsage), 0.5).
		AddTimer(e.ID(netstats.RTT), 250*time.Millisecond)
	netstats.AddEvents(b, e.ID(netstats.MessagesSent), netstats.MessageEventType,
		[]netstats.MessageEvent{{Bytes: 1}, {Bytes: 2}})
	c, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, ex.Notify(context.Background(), c))
	ex.Handle(c)

	assert.InDelta(t, 2, testutil.ToFloat64(ex.frames), 0)
	assert.InDelta(t, 200, testutil.ToFloat64(ex.counters.WithLabelValues("NetworkMetric.BytesSent")), 0)
	assert.InDelta(t, 0.5, testutil.ToFloat64(ex.gauges.WithLabelValues("NetworkMetric.CPUUsage")), 0)
	assert.InDelta(t, 0.25, testutil.ToFloat64(ex.timers.WithLabelValues("NetworkMetric.RTT")), 1e-9)
	assert.InDelta(t, 4, testutil.ToFloat64(ex.events.WithLabelValues("NetworkMetric.MessagesSent", "MessageEvent")), 0)
}

func TestExporter_NegativeCounterIgnored(t *testing.T) {
	ex, e := setup(t)
	c, err := netstats.NewBuilder().AddCounter(e.ID(netstats.BytesSent), -5).Build()
	require.NoError(t, err)

	require.NoError(t, ex.Notify(context.Background(), c))
	assert.Equal(t, 0, testutil.CollectAndCount(ex.counters))
}

func TestExporter_Handler(t *testing.T) {
	ex, e := setup(t)
	c, err := netstats.NewBuilder().AddGauge(e.ID(netstats.PacketLoss), 0.1).Build()
	require.NoError(t, err)
	require.NoError(t, ex.Notify(context.Background(), nil))
	require.NoError(t, ex.Notify(context.Background(), c))

	rec := httptest.NewRecorder()
	ex.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `netstats_gauge{stat="NetworkMetric.PacketLoss"} 0.1`), body)
	assert.True(t, strings.Contains(body, "netstats_collections_total 1"), body)
}

func TestExporter_UnregisteredIDsShareOneSeries(t *testing.T) {
	ex, e := setup(t)
	b := netstats.NewBuilder().AddGauge(e.ID(netstats.CPUUsage), 0.5)
	for i := range 50 {
		b.AddGauge(netstats.MetricID{TypeIndex: 900, EnumValue: int32(i)}, float64(i))
		b.AddCounter(netstats.MetricID{TypeIndex: e.TypeIndex(), EnumValue: 1000 + int32(i)}, 1)
	}
	c, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, ex.Notify(context.Background(), c))
	assert.Equal(t, 2, testutil.CollectAndCount(ex.gauges))
	assert.Equal(t, 1, testutil.CollectAndCount(ex.counters))
	assert.InDelta(t, 50, testutil.ToFloat64(ex.counters.WithLabelValues(unknownStat)), 0)
}
