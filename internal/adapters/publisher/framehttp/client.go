// Package framehttp ships encoded metric frames to the monitor over HTTP.
package framehttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/vshulcz/netstats/internal/misc"
	"github.com/vshulcz/netstats/internal/ports"
)

// FramesPath is the monitor endpoint that accepts frames.
const FramesPath = "/frames"

// Client posts gzipped binary frames to the monitor.
type Client struct {
	key  string
	base *url.URL
	hc   *http.Client
}

var _ ports.FramePublisher = (*Client)(nil)

var (
	gzipWriterPool = sync.Pool{
		New: func() any {
			return gzip.NewWriter(io.Discard)
		},
	}
	bufferPool = sync.Pool{
		New: func() any {
			return new(bytes.Buffer)
		},
	}
)

// New normalizes the base address, configures the HTTP client, and returns a Client instance.
func New(serverAddr string, hc *http.Client, key string) (*Client, error) {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	u, err := url.Parse(normalizeBase(serverAddr))
	if err != nil {
		return nil, err
	}
	return &Client{base: u, hc: hc, key: strings.TrimSpace(key)}, nil
}

func normalizeBase(s string) string {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return strings.TrimRight(s, "/")
	}
	return "http://" + strings.TrimRight(s, "/")
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// SendFrame posts one encoded collection. The HashSHA256 header, when a key is
// configured, signs the uncompressed frame.
func (c *Client) SendFrame(ctx context.Context, frame []byte) (retErr error) {
	var hashHeader string
	if c.key != "" {
		hashHeader = misc.SumSHA256(frame, c.key)
	}

	buf, err := gzipBytes(frame)
	if err != nil {
		return err
	}
	defer releaseBuffer(buf)
	body := buf.Bytes()

	var resp *http.Response
	op := func() error {
		req, err := c.newRequest(ctx, body, hashHeader)
		if err != nil {
			return err
		}
		r, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		if err := checkHTTPStatus(r); err != nil {
			_ = drain(r)
			return err
		}
		resp = r
		return nil
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, isRetryableHTTP, op); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close response body: %w", cerr)
		}
	}()
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

func (c *Client) newRequest(ctx context.Context, body []byte, hashHeader string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(FramesPath), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "gzip")
	if hashHeader != "" {
		req.Header.Set("HashSHA256", hashHeader)
	}
	return req, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server status: %d %s", e.Code, http.StatusText(e.Code))
}

func checkHTTPStatus(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func drain(resp *http.Response) error {
	_, err := io.Copy(io.Discard, resp.Body)
	if cerr := resp.Body.Close(); err == nil {
		err = cerr
	}
	return err
}

func isRetryableHTTP(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusBadGateway, http.StatusServiceUnavailable,
			http.StatusGatewayTimeout, http.StatusTooManyRequests:
			return true
		default:
			return false
		}
	}
	return misc.IsNetworkError(err)
}

func gzipBytes(src []byte) (*bytes.Buffer, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	zw := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(zw)
	zw.Reset(buf)
	if _, err := zw.Write(src); err != nil {
		_ = zw.Close()
		releaseBuffer(buf)
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		releaseBuffer(buf)
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf, nil
}

func releaseBuffer(buf *bytes.Buffer) {
	buf.Reset()
	bufferPool.Put(buf)
}
