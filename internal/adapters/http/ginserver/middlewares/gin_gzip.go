// Package middlewares holds the gin middleware chain of the monitor HTTP server.
package middlewares

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
)

var gzipWriterPool = sync.Pool{
	New: func() any { return gzip.NewWriter(io.Discard) },
}

type gzipReadCloser struct {
	gz  *gzip.Reader
	raw io.Closer
}

func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.gz.Read(p)
}

func (g *gzipReadCloser) Close() error {
	if err := g.gz.Close(); err != nil {
		return err
	}
	if g.raw != nil {
		return g.raw.Close()
	}
	return nil
}

// GzipRequest transparently inflates request bodies sent with Content-Encoding: gzip.
func GzipRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if enc := strings.ToLower(c.GetHeader("Content-Encoding")); strings.Contains(enc, "gzip") {
			gr, err := gzip.NewReader(c.Request.Body)
			if err != nil {
				c.AbortWithStatus(http.StatusBadRequest)
				return
			}
			c.Request.Body = &gzipReadCloser{gz: gr, raw: c.Request.Body}
			c.Request.Header.Del("Content-Length")
		}
		c.Next()
	}
}

type gzipResponseWriter struct {
	gin.ResponseWriter
	gzw        *gzip.Writer
	compress   bool
	decided    bool
	acceptGzip bool
}

func (w *gzipResponseWriter) decide() {
	if w.decided {
		return
	}
	w.decided = true

	if !w.acceptGzip || w.Header().Get("Content-Encoding") != "" {
		return
	}
	ct := w.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "application/json") && !strings.HasPrefix(ct, "text/html") &&
		!strings.HasPrefix(ct, "text/plain") {
		return
	}
	status := w.Status()
	if status == http.StatusNoContent || status < http.StatusOK {
		return
	}

	w.Header().Del("Content-Length")
	w.Header().Set("Content-Encoding", "gzip")
	gz, _ := gzipWriterPool.Get().(*gzip.Writer)
	gz.Reset(w.ResponseWriter)
	w.gzw = gz
	w.compress = true
}

func (w *gzipResponseWriter) WriteHeader(code int) {
	w.ResponseWriter.WriteHeader(code)
}

func (w *gzipResponseWriter) Write(p []byte) (int, error) {
	if !w.decided {
		w.decide()
	}
	if w.compress {
		return w.gzw.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *gzipResponseWriter) Close() error {
	if w.gzw == nil {
		return nil
	}
	err := w.gzw.Close()
	w.gzw.Reset(io.Discard)
	gzipWriterPool.Put(w.gzw)
	w.gzw = nil
	return err
}

// GzipResponse compresses JSON, HTML and plain text responses for clients that
// accept gzip. Binary frames and bodies that are already encoded pass through unchanged.
func GzipResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		accept := strings.Contains(strings.ToLower(c.GetHeader("Accept-Encoding")), "gzip")
		if !accept {
			c.Next()
			return
		}
		grw := &gzipResponseWriter{ResponseWriter: c.Writer, acceptGzip: true}
		c.Writer = grw
		c.Next()
		if err := grw.Close(); err != nil {
			_ = c.Error(err)
		}
	}
}
