package ginserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/vshulcz/netstats/internal/adapters/capture/memory"
	"github.com/vshulcz/netstats/internal/adapters/http/ginserver/middlewares"
	"github.com/vshulcz/netstats/internal/adapters/prom"
	"github.com/vshulcz/netstats/internal/domain"
	"github.com/vshulcz/netstats/internal/misc"
	display "github.com/vshulcz/netstats/internal/monitor"
	"github.com/vshulcz/netstats/internal/netstats"
	"github.com/vshulcz/netstats/internal/netstats/codec"
	"github.com/vshulcz/netstats/internal/services/monitor"
)

type testEnv struct {
	srv   *httptest.Server
	svc   *monitor.Service
	store *memory.Store
	ser   *codec.Serializer
	enum  netstats.Enum[netstats.NetworkMetric]
}

func newEnv(t *testing.T, key string, withStore bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := netstats.NewRegistry()
	enum, err := netstats.RegisterNetworkMetrics(reg)
	if err != nil {
		t.Fatalf("register metrics: %v", err)
	}
	creg := codec.NewRegistry()
	if err := codec.RegisterStockEvents(creg); err != nil {
		t.Fatalf("register events: %v", err)
	}
	ser := codec.NewSerializer(creg)

	mon := display.New(reg, monitor.DefaultDisplayConfiguration(), zap.NewNop())
	var opts []monitor.Option
	var store *memory.Store
	if withStore {
		store = memory.New(8)
		opts = append(opts, monitor.WithStore(store))
	}
	svc := monitor.New(mon, reg, ser, zap.NewNop(), opts...)

	exp := prom.New(reg)
	svc.Adapter().Subscribe(exp.Handle)

	h := NewHandler(svc, exp.Handler())
	r := NewRouter(h, zap.NewNop(),
		middlewares.ZapLogger(zap.NewNop()),
		middlewares.GzipRequest(),
		middlewares.GzipResponse(),
		middlewares.HashSHA256(key),
	)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, svc: svc, store: store, ser: ser, enum: enum}
}

func (e *testEnv) frame(t *testing.T, sent int64) []byte {
	t.Helper()
	c, err := netstats.NewBuilder().
		WithConnectionID(9).
		AddCounter(e.enum.ID(netstats.BytesSent), sent).
		AddGauge(e.enum.ID(netstats.CPUUsage), 0.5).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b, err := e.ser.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func doReq(t *testing.T, method, url string, body []byte, hdr map[string]string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	data := readMaybeGzip(t, resp)
	return resp, data
}

func readMaybeGzip(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	defer resp.Body.Close()
	var r io.Reader = resp.Body
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Encoding")), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			t.Fatalf("gzip reader: %v", err)
		}
		defer zr.Close()
		r = zr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func gzipBytes(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestHTTP_IngestFrame(t *testing.T) {
	env := newEnv(t, "", true)

	resp, body := doReq(t, http.MethodPost, env.srv.URL+"/frames", env.frame(t, 100),
		map[string]string{"Content-Type": "application/octet-stream"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var capture domain.Capture
	if err := json.Unmarshal(body, &capture); err != nil {
		t.Fatalf("decode capture: %v", err)
	}
	if capture.ConnectionID != 9 || capture.MetricCount != 2 || capture.SessionID != env.svc.SessionID() {
		t.Fatalf("unexpected capture: %+v", capture)
	}
	if env.store.Len() != 1 {
		t.Fatalf("expected 1 stored capture, got %d", env.store.Len())
	}
}

func TestHTTP_IngestFrame_Gzip(t *testing.T) {
	env := newEnv(t, "", true)

	resp, body := doReq(t, http.MethodPost, env.srv.URL+"/frames", gzipBytes(t, env.frame(t, 5)),
		map[string]string{"Content-Type": "application/octet-stream", "Content-Encoding": "gzip"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}

	resp, body = doReq(t, http.MethodPost, env.srv.URL+"/frames", []byte("not gzip"),
		map[string]string{"Content-Encoding": "gzip"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("broken gzip: status=%d body=%s", resp.StatusCode, body)
	}
}

func TestHTTP_IngestFrame_Invalid(t *testing.T) {
	env := newEnv(t, "", true)

	tests := []struct {
		name string
		body []byte
		want int
	}{
		{name: "garbage", body: []byte{0xde, 0xad}, want: http.StatusBadRequest},
		{name: "empty", body: []byte{}, want: http.StatusBadRequest},
		{name: "too large", body: make([]byte, MaxFrameBytes+1), want: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doReq(t, http.MethodPost, env.srv.URL+"/frames", tt.body, nil)
			if resp.StatusCode != tt.want {
				t.Fatalf("status=%d want=%d body=%s", resp.StatusCode, tt.want, body)
			}
		})
	}
	if env.store.Len() != 0 {
		t.Fatalf("invalid frames must not be stored, got %d", env.store.Len())
	}
}

func TestHTTP_HashSHA256(t *testing.T) {
	const key = "secret"
	env := newEnv(t, key, true)
	frame := env.frame(t, 1)

	resp, body := doReq(t, http.MethodPost, env.srv.URL+"/frames", frame,
		map[string]string{"HashSHA256": misc.SumSHA256(frame, key)})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signed: status=%d body=%s", resp.StatusCode, body)
	}
	if got := resp.Header.Get("HashSHA256"); got != misc.SumSHA256(body, key) {
		t.Fatalf("response hash mismatch: %q", got)
	}

	signed := misc.SumSHA256(frame, key)
	resp, body = doReq(t, http.MethodPost, env.srv.URL+"/frames", gzipBytes(t, frame),
		map[string]string{"HashSHA256": strings.ToUpper(signed), "Content-Encoding": "gzip"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signed gzip: status=%d body=%s", resp.StatusCode, body)
	}

	resp, body = doReq(t, http.MethodPost, env.srv.URL+"/frames", frame,
		map[string]string{"HashSHA256": misc.SumSHA256(frame, "other")})
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "invalid hash") {
		t.Fatalf("bad signature: status=%d body=%s", resp.StatusCode, body)
	}
	if env.store.Len() != 2 {
		t.Fatalf("expected 2 stored captures, got %d", env.store.Len())
	}
}

func TestHTTP_AddCustomValue(t *testing.T) {
	env := newEnv(t, "", false)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{name: "tracked stat", body: `{"stat":"NetworkMetric.RTT","value":0.02}`, wantCode: http.StatusOK, wantBody: `{"consumed":true}`},
		{name: "unknown stat", body: `{"stat":"NetworkMetric.Nope","value":1}`, wantCode: http.StatusNotFound},
		{name: "missing value", body: `{"stat":"NetworkMetric.RTT"}`, wantCode: http.StatusBadRequest},
		{name: "missing stat", body: `{"value":1}`, wantCode: http.StatusBadRequest},
		{name: "bad json", body: `{`, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doReq(t, http.MethodPost, env.srv.URL+"/custom", []byte(tt.body),
				map[string]string{"Content-Type": "application/json"})
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status=%d want=%d body=%s", resp.StatusCode, tt.wantCode, body)
			}
			if tt.wantBody != "" && strings.TrimSpace(string(body)) != tt.wantBody {
				t.Fatalf("body=%s want=%s", body, tt.wantBody)
			}
		})
	}
}

func TestHTTP_DisplayAndIndex(t *testing.T) {
	env := newEnv(t, "", false)
	if resp, body := doReq(t, http.MethodPost, env.srv.URL+"/frames", env.frame(t, 10), nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("seed: status=%d body=%s", resp.StatusCode, body)
	}

	resp, body := doReq(t, http.MethodGet, env.srv.URL+"/api/v1/display", nil,
		map[string]string{"Accept-Encoding": "gzip"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("display: status=%d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		t.Fatalf("expected gzip-encoded display, headers=%v", resp.Header)
	}
	var d display.Display
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatalf("decode display: %v", err)
	}
	if len(d.Elements) != len(monitor.DefaultDisplayConfiguration().Elements) {
		t.Fatalf("unexpected elements: %+v", d.Elements)
	}

	resp, body = doReq(t, http.MethodGet, env.srv.URL+"/", nil, nil)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("index: status=%d ct=%q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	for _, want := range []string{"Bytes Sent", "CPU Usage", "Traffic", "NetworkMetric.BytesSent="} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("index missing %q:\n%s", want, body)
		}
	}
}

func TestHTTP_DisplayConfiguration(t *testing.T) {
	env := newEnv(t, "", false)

	cfg := `{"max_refresh_rate":10,"elements":[{"type":"counter","label":"Sent","stats":["NetworkMetric.BytesSent"]}]}`
	resp, body := doReq(t, http.MethodPut, env.srv.URL+"/api/v1/display/config", []byte(cfg),
		map[string]string{"Content-Type": "application/json"})
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != `{"rebuilt":true}` {
		t.Fatalf("configure: status=%d body=%s", resp.StatusCode, body)
	}

	resp, body = doReq(t, http.MethodGet, env.srv.URL+"/api/v1/display", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("display: status=%d", resp.StatusCode)
	}
	var d display.Display
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatalf("decode display: %v", err)
	}
	if len(d.Elements) != 1 || d.Elements[0].Label != "Sent" {
		t.Fatalf("configuration not applied: %+v", d.Elements)
	}

	resp, body = doReq(t, http.MethodGet, env.srv.URL+"/api/v1/display/config", nil, nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"Sent"`) {
		t.Fatalf("get config: status=%d body=%s", resp.StatusCode, body)
	}

	resp, _ = doReq(t, http.MethodPut, env.srv.URL+"/api/v1/display/config", []byte(`{"elements":`), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad config: status=%d", resp.StatusCode)
	}
}

func TestHTTP_Captures(t *testing.T) {
	env := newEnv(t, "", true)
	for i := range 3 {
		if resp, body := doReq(t, http.MethodPost, env.srv.URL+"/frames", env.frame(t, int64(i+1)), nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("seed %d: status=%d body=%s", i, resp.StatusCode, body)
		}
	}

	resp, body := doReq(t, http.MethodGet, env.srv.URL+"/api/v1/captures?limit=2", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("captures: status=%d body=%s", resp.StatusCode, body)
	}
	var got []domain.Capture
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 captures, got %d", len(got))
	}

	resp, _ = doReq(t, http.MethodGet, env.srv.URL+"/api/v1/captures?limit=x", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad limit: status=%d", resp.StatusCode)
	}
}

func TestHTTP_Captures_NoStore(t *testing.T) {
	env := newEnv(t, "", false)
	resp, _ := doReq(t, http.MethodGet, env.srv.URL+"/api/v1/captures", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestHTTP_PingAndMetrics(t *testing.T) {
	env := newEnv(t, "", true)

	resp, body := doReq(t, http.MethodGet, env.srv.URL+"/ping", nil, nil)
	if resp.StatusCode != http.StatusInternalServerError || !strings.Contains(string(body), domain.ErrStoreNotConfigured.Error()) {
		t.Fatalf("ping: status=%d body=%s", resp.StatusCode, body)
	}

	if resp, body := doReq(t, http.MethodPost, env.srv.URL+"/frames", env.frame(t, 42), nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("seed: status=%d body=%s", resp.StatusCode, body)
	}
	resp, body = doReq(t, http.MethodGet, env.srv.URL+"/metrics", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: status=%d", resp.StatusCode)
	}
	for _, want := range []string{
		"netstats_collections_total 1",
		`netstats_counter_total{stat="NetworkMetric.BytesSent"} 42`,
		`netstats_gauge{stat="NetworkMetric.CPUUsage"} 0.5`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestHTTP_MethodNotAllowed(t *testing.T) {
	env := newEnv(t, "", false)
	resp, body := doReq(t, http.MethodGet, env.srv.URL+"/frames", nil, nil)
	if resp.StatusCode != http.StatusMethodNotAllowed || strings.TrimSpace(string(body)) != "method not allowed" {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
}

func TestHandler_MetricsDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	h.Metrics(c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
}
