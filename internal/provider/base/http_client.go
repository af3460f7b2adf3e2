package base

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// HTTPClient provides common HTTP functionality for outbound integrations
type HTTPClient struct {
	client     *http.Client
	baseURL    string
	name       string // integration name for logging
	maxRetries uint64
	backoff    func() backoff.BackOff
}

// NewHTTPClient creates a new HTTP client with default settings
func NewHTTPClient(name string, timeoutSec int) *HTTPClient {
	if timeoutSec == 0 {
		timeoutSec = 30 // default timeout
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
		name:       name,
		maxRetries: 3,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
	}
}

// SetBaseURL sets the base URL for all requests
func (c *HTTPClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SetRetry overrides the retry policy. A nil policy disables retries.
func (c *HTTPClient) SetRetry(maxRetries uint64, policy func() backoff.BackOff) {
	c.maxRetries = maxRetries
	c.backoff = policy
}

// PostJSON makes a POST request with JSON payload. Callers that sign the
// body should use PostRaw so the signed bytes are the ones sent.
func (c *HTTPClient) PostJSON(ctx context.Context, endpoint string, payload interface{}, headers map[string]string) (*HTTPResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON payload: %w", err)
	}
	return c.PostRaw(ctx, endpoint, body, headers)
}

// PostRaw makes a POST request with an already encoded JSON body
func (c *HTTPClient) PostRaw(ctx context.Context, endpoint string, body []byte, headers map[string]string) (*HTTPResponse, error) {
	return c.do(ctx, http.MethodPost, endpoint, body, headers)
}

// Get makes a GET request
func (c *HTTPClient) Get(ctx context.Context, endpoint string, headers map[string]string) (*HTTPResponse, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, headers)
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body []byte, headers map[string]string) (*HTTPResponse, error) {
	url := c.baseURL + endpoint

	var result *HTTPResponse
	attempt := 0
	op := func() error {
		attempt++
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		// Set default headers
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("User-Agent", fmt.Sprintf("KrostyShop/%s", c.name))

		// Add custom headers
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		log.Debug().
			Str("integration", c.name).
			Str("method", method).
			Str("url", url).
			Int("attempt", attempt).
			Msg("making HTTP request")

		resp, err := c.client.Do(req)
		if err != nil {
			log.Warn().
				Str("integration", c.name).
				Str("url", url).
				Err(err).
				Msg("HTTP request failed")
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return fmt.Errorf("HTTP request failed: %w", err)
		}

		httpResp, err := c.handleResponse(resp)
		if err != nil {
			return err
		}
		result = httpResp
		if httpResp.StatusCode >= 500 {
			return fmt.Errorf("%s returned %d", c.name, httpResp.StatusCode)
		}
		return nil
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if c.backoff != nil {
		policy = backoff.WithMaxRetries(c.backoff(), c.maxRetries)
	}
	err := backoff.Retry(op, backoff.WithContext(policy, ctx))
	if err != nil && result != nil && result.StatusCode >= 500 {
		// retries exhausted on a server error; hand the last response back
		return result, nil
	}
	return result, err
}

// handleResponse processes the HTTP response
func (c *HTTPClient) handleResponse(resp *http.Response) (*HTTPResponse, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	httpResp := &HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	log.Debug().
		Str("integration", c.name).
		Int("status_code", resp.StatusCode).
		Int("body_length", len(body)).
		Msg("received HTTP response")

	return httpResp, nil
}

// HTTPResponse represents an HTTP response
type HTTPResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsSuccess checks if the response indicates success (2xx status code)
func (r *HTTPResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// UnmarshalJSON unmarshals the response body into the provided struct
func (r *HTTPResponse) UnmarshalJSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// String returns the response body as a string
func (r *HTTPResponse) String() string {
	return string(r.Body)
}
