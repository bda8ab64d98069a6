package middlewares

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/netstats/internal/misc"
)

// HashHeader carries the keyed SHA-256 of a request or response body.
const HashHeader = "HashSHA256"

var signBufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// signingWriter holds the response back until it can be signed.
type signingWriter struct {
	gin.ResponseWriter
	status int
	body   *bytes.Buffer
}

func (w *signingWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}

func (w *signingWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *signingWriter) WriteHeader(code int) {
	w.status = code
}

// flush signs the buffered body and writes it to the wrapped writer.
func (w *signingWriter) flush(c *gin.Context, key string) {
	if w.body.Len() > 0 {
		w.ResponseWriter.Header().Set(HashHeader, misc.SumSHA256(w.body.Bytes(), key))
	}
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	w.ResponseWriter.WriteHeader(status)
	if _, err := w.ResponseWriter.Write(w.body.Bytes()); err != nil {
		_ = c.Error(err)
	}
}

// HashSHA256 rejects signed requests whose HashSHA256 header does not match the
// body, and signs every non-empty response. Unsigned requests pass through.
// Install it after GzipRequest so the signature covers the decompressed frame.
// An empty key disables both checks.
func HashSHA256(key string) gin.HandlerFunc {
	key = strings.TrimSpace(key)
	if key == "" {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		buf, _ := signBufferPool.Get().(*bytes.Buffer)
		buf.Reset()
		defer signBufferPool.Put(buf)

		sw := &signingWriter{ResponseWriter: c.Writer, body: buf}
		c.Writer = sw
		defer func() {
			c.Writer = sw.ResponseWriter
			sw.flush(c, key)
		}()

		if !verifyRequest(c, key) {
			c.Abort()
			c.String(http.StatusBadRequest, "invalid hash")
			return
		}
		c.Next()
	}
}

// verifyRequest checks the body against the request signature, leaving the body
// readable for the next handler.
func verifyRequest(c *gin.Context, key string) bool {
	want := strings.ToLower(strings.TrimSpace(c.GetHeader(HashHeader)))
	if want == "" {
		return true
	}
	body, err := io.ReadAll(c.Request.Body)
	_ = c.Request.Body.Close()
	if err != nil {
		return false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return len(body) == 0 || misc.VerifySHA256(body, key, want)
}
