// Package remoteaudit forwards frame audit events to an HTTP collector.
package remoteaudit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vshulcz/netstats/internal/misc"
	"github.com/vshulcz/netstats/internal/services/audit"
)

// Client sends audit events to a remote HTTP endpoint.
type Client struct {
	endpoint string
	key      string
	hc       *http.Client
}

var _ audit.Observer = (*Client)(nil)

// New validates the endpoint URL and returns a Client that POSTs audit events there.
// A non-empty key signs each body in the HashSHA256 header.
func New(rawURL string, hc *http.Client, key string) (*Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("audit url is empty")
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("invalid audit url: %w", err)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{endpoint: rawURL, hc: hc, key: strings.TrimSpace(key)}, nil
}

type statusError int

func (e statusError) Error() string { return fmt.Sprintf("audit post status %d", int(e)) }

func retryable(err error) bool {
	if se, ok := err.(statusError); ok {
		return se >= http.StatusInternalServerError
	}
	return misc.IsNetworkError(err)
}

// Notify POSTs evt as JSON, retrying on server errors and network failures.
func (c *Client) Notify(ctx context.Context, evt audit.Event) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	var hash string
	if c.key != "" {
		hash = misc.SumSHA256(payload, c.key)
	}
	return misc.Retry(ctx, misc.DefaultBackoff, retryable, func() error {
		return c.post(ctx, payload, hash)
	})
}

func (c *Client) post(ctx context.Context, payload []byte, hash string) (retErr error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if hash != "" {
		req.Header.Set("HashSHA256", hash)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("audit post: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close audit response: %w", cerr)
		}
	}()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain audit response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode)
	}
	return nil
}
