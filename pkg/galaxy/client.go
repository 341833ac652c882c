package galaxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"
)

// Client provides methods to interact with the Galaxy REST API.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
}

// NewClient creates a new Galaxy API client with the given configuration.
func NewClient(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	config = config.WithURL(config.URL)

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
		logger: logger.With("component", "galaxy-client"),
	}
}

// URL returns the base URL of the Galaxy server.
func (c *Client) URL() string {
	return c.config.URL
}

// APIKey returns the current API key.
func (c *Client) APIKey() string {
	return c.config.APIKey
}

// SetAPIKey updates the API key.
func (c *Client) SetAPIKey(key string) {
	c.config.APIKey = key
}

// do executes a request against path (relative to /api) and decodes the JSON
// response into out. Retryable failures are retried with exponential backoff.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return WrapError(op, fmt.Errorf("marshaling request: %w", err))
		}
	}
	return c.send(ctx, op, method, path, query, payload, nil, out)
}

// send is do with an encoded payload; header overrides the JSON defaults.
func (c *Client) send(ctx context.Context, op, method, path string, query url.Values, payload []byte, header http.Header, out any) error {
	endpoint := c.config.URL + "/api/" + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	logger := c.logger.With("op", op, "method", method, "path", path)

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			logger.Debug("retrying after delay", "attempt", attempt, "delay", delay)

			select {
			case <-ctx.Done():
				return WrapError(op, ctx.Err())
			case <-time.After(delay):
			}
		}

		respBody, err := c.doRequest(ctx, method, endpoint, payload, header)
		if err != nil {
			lastErr = err
			if !IsRetryable(err) {
				return WrapError(op, err)
			}
			logger.Debug("request failed, will retry", "error", err, "attempt", attempt)
			continue
		}

		logger.Debug("request successful", "bytes", len(respBody))
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return WrapError(op, fmt.Errorf("unmarshaling response: %w", err))
		}
		return nil
	}

	return WrapError(op, fmt.Errorf("all retries exhausted: %w", lastErr))
}

// doRequest performs a single HTTP request and returns the response body.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload []byte, header http.Header) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		httpReq.Header.Set("x-api-key", c.config.APIKey)
	}
	for k, vs := range header {
		httpReq.Header[http.CanonicalHeaderKey(k)] = vs
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, newHTTPError(httpResp.StatusCode, respBody)
	}
	return respBody, nil
}
