// Package netx moves ciphertext to and from the object store through
// presigned URLs.
package netx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultTimeout  = 5 * time.Minute
	DefaultAttempts = 3

	// S3 and MinIO put this text in the body of a 403 for a stale signature.
	expiredMarker = "Request has expired"
	// Only the head of an error body is kept for classification and messages.
	errBodyLimit = 4 << 10
)

// Client performs object transfers. The zero value is not usable; call New.
type Client struct {
	http     *http.Client
	timeout  time.Duration
	attempts uint64
	base     time.Duration
}

// New returns a Client whose every request is bounded by timeout. A
// non-positive timeout selects DefaultTimeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:     &http.Client{},
		timeout:  timeout,
		attempts: DefaultAttempts,
		base:     200 * time.Millisecond,
	}
}

// Upload PUTs body to a presigned URL.
func (c *Client) Upload(ctx context.Context, url string, body []byte) error {
	_, err := c.do(ctx, http.MethodPut, url, body)
	return err
}

// Download GETs the object behind a presigned URL.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	b := retry.NewExponential(c.base)
	b = retry.WithJitterPercent(10, b)
	b = retry.WithMaxRetries(c.attempts-1, b)

	return retry.DoValue(ctx, b, func(ctx context.Context) ([]byte, error) {
		data, err := c.once(ctx, method, url, body)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, common.ErrStorageUnavailable) {
			return nil, retry.RetryableError(err)
		}
		return nil, err
	})
}

func (c *Client) once(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
		req.ContentLength = int64(len(body))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err)
		}
		return data, nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
	return nil, classify(resp.StatusCode, string(msg))
}

func classify(status int, body string) error {
	switch {
	case status == http.StatusForbidden && strings.Contains(body, expiredMarker):
		return common.ErrLinkExpired
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: object store returned %d", common.ErrorUnauthorized, status)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: object store returned %d", common.ErrorNotFound, status)
	case status >= 500:
		return fmt.Errorf("%w: object store returned %d", common.ErrStorageUnavailable, status)
	default:
		return fmt.Errorf("object store returned %d: %s", status, strings.TrimSpace(body))
	}
}
