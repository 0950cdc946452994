package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxResponseBytes caps how much of a page is read. Ten years of daily rows
// fit well below it.
var maxResponseBytes int64 = 32 << 20

// ErrResponseTooLarge is returned when a page exceeds maxResponseBytes.
var ErrResponseTooLarge = errors.New("response too large")

// APIError represents a non-success response from the exchange site.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mse site error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// doRequest performs an HTTP request. A non-nil form is sent url-encoded as the body.
func (c *Client) doRequest(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	fullURL := c.baseURL + path

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(respBody)) > maxResponseBytes {
		return nil, fmt.Errorf("%w: more than %d bytes from %s", ErrResponseTooLarge, maxResponseBytes, path)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       respBody,
		}
	}

	return respBody, nil
}

// get fetches a page.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, path, nil)
}

// post submits a form.
func (c *Client) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	if form == nil {
		form = url.Values{}
	}
	return c.doRequest(ctx, http.MethodPost, path, form)
}
