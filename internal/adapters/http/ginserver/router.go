// Package ginserver exposes the monitor service over HTTP using gin.
package ginserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter registers every monitor route behind the given middlewares.
func NewRouter(h *Handler, _ *zap.Logger, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.RedirectTrailingSlash = false
	r.RemoveExtraSlash = true

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/ping", h.Ping)
	r.GET("/metrics", h.Metrics)
	r.GET("/", h.Index)

	r.POST("/frames", h.IngestFrame)
	r.POST("/frames/", h.IngestFrame)
	r.POST("/custom", h.AddCustomValue)
	r.POST("/custom/", h.AddCustomValue)

	api := r.Group("/api/v1")
	api.GET("/display", h.DisplayJSON)
	api.GET("/display/config", h.ConfigurationJSON)
	api.PUT("/display/config", h.Configure)
	api.GET("/captures", h.Captures)

	return r
}
