package ginserver

import (
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/netstats/internal/domain"
	display "github.com/vshulcz/netstats/internal/monitor"
	"github.com/vshulcz/netstats/internal/netstats"
	"github.com/vshulcz/netstats/internal/services/audit"
	"github.com/vshulcz/netstats/internal/services/monitor"
)

const (
	// MaxFrameBytes bounds the decompressed size of one POST /frames body.
	MaxFrameBytes       = 4 << 20
	defaultCaptureLimit = 100
)

// Handler exposes HTTP endpoints for frame ingestion and display inspection.
type Handler struct {
	svc     *monitor.Service
	metrics http.Handler
}

// NewHandler wires a monitor service into a gin-compatible HTTP handler.
// metrics, when non-nil, is served on GET /metrics.
func NewHandler(svc *monitor.Service, metrics http.Handler) *Handler {
	return &Handler{svc: svc, metrics: metrics}
}

// IngestFrame handles `POST /frames` with one serialized collection as the body.
func (h *Handler) IngestFrame(c *gin.Context) {
	frame, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxFrameBytes+1))
	if err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}
	if len(frame) > MaxFrameBytes {
		c.String(http.StatusRequestEntityTooLarge, "frame too large")
		return
	}

	ctx := audit.WithOrigin(c.Request.Context(), c.ClientIP())
	capture, err := h.svc.IngestFrame(ctx, frame)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, capture)
}

type customValueRequest struct {
	Value *float32 `json:"value"`
	Stat  string   `json:"stat"`
}

// AddCustomValue handles `POST /custom` injecting one sample for a "Type.Value" stat.
func (h *Handler) AddCustomValue(c *gin.Context) {
	var req customValueRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Stat) == "" || req.Value == nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}
	consumed, err := h.svc.AddCustomValue(req.Stat, *req.Value)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consumed": consumed})
}

// DisplayJSON handles `GET /api/v1/display` returning the latest rendered display.
func (h *Handler) DisplayJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Display())
}

// ConfigurationJSON handles `GET /api/v1/display/config`.
func (h *Handler) ConfigurationJSON(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Configuration())
}

// Configure handles `PUT /api/v1/display/config` replacing the display configuration.
func (h *Handler) Configure(c *gin.Context) {
	cfg, err := display.LoadConfiguration(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rebuilt": h.svc.Configure(cfg)})
}

// Captures handles `GET /api/v1/captures?limit=N` listing the most recent frames.
func (h *Handler) Captures(c *gin.Context) {
	limit := defaultCaptureLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.String(http.StatusBadRequest, "bad request")
			return
		}
		limit = n
	}

	captures, err := h.svc.Captures(c.Request.Context(), limit)
	if err != nil {
		httpError(c, err)
		return
	}
	if captures == nil {
		captures = []domain.Capture{}
	}
	c.JSON(http.StatusOK, captures)
}

// Ping proxies `GET /ping` to the capture store health check.
func (h *Handler) Ping(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		c.String(http.StatusInternalServerError, "db ping error: %v", err)
		return
	}
	c.String(http.StatusOK, "ok")
}

// Metrics serves `GET /metrics` from the configured exporter.
func (h *Handler) Metrics(c *gin.Context) {
	if h.metrics == nil {
		c.String(http.StatusNotFound, "not found")
		return
	}
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// Index renders a basic HTML dashboard of the current display.
func (h *Handler) Index(c *gin.Context) {
	d := h.svc.Display()

	var sb strings.Builder
	sb.WriteString("<!doctype html><html><head><meta charset='utf-8'><title>netstats</title>")
	sb.WriteString("<style>body{font-family:system-ui,Arial,sans-serif}table{border-collapse:collapse}td,th{border:1px solid #ddd;padding:6px 10px}.hl{color:#c00}</style>")
	sb.WriteString("</head><body>")
	sb.WriteString("<h1>Network statistics</h1>")
	if d.NoDataReceived {
		sb.WriteString("<p class='hl'>No data received</p>")
	}

	sb.WriteString("<table><tr><th>Label</th><th>Value</th><th>Units</th></tr>")
	for _, el := range d.Elements {
		text := el.Text
		if el.Type == display.ElementGraph {
			text = graphSummary(el.Series)
		}
		if el.Highlighted {
			sb.WriteString("<tr class='hl'><td>")
		} else {
			sb.WriteString("<tr><td>")
		}
		sb.WriteString(html.EscapeString(el.Label))
		sb.WriteString("</td><td>")
		sb.WriteString(html.EscapeString(text))
		sb.WriteString("</td><td>")
		sb.WriteString(html.EscapeString(el.Units))
		sb.WriteString("</td></tr>")
	}
	sb.WriteString("</table>")

	sb.WriteString("</body></html>")

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(sb.String()))
}

func graphSummary(series []display.Series) string {
	parts := make([]string, 0, len(series))
	for _, s := range series {
		last := 0.0
		if n := len(s.Samples); n > 0 {
			last = s.Samples[n-1]
		}
		parts = append(parts, fmt.Sprintf("%s=%s", s.Stat, strconv.FormatFloat(last, 'g', 4, 64)))
	}
	return strings.Join(parts, " ")
}

func httpError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrInvalidFrame):
		c.String(http.StatusBadRequest, "bad request")
	case errors.Is(err, netstats.ErrUnknownMetricID), errors.Is(err, netstats.ErrUnregisteredType):
		c.String(http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNotFound):
		c.String(http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrStoreNotConfigured):
		c.String(http.StatusServiceUnavailable, "capture store not configured")
	default:
		c.String(http.StatusInternalServerError, "internal error")
	}
}
