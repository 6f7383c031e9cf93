package ghibli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Baaaki/ghibli-gate/internal/metrics"
	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://ghibli.rest"
	DefaultTimeout = 10 * time.Second

	// maxBodyBytes caps a single upstream response.
	maxBodyBytes = 16 << 20
)

var ErrInvalidPayload = errors.New("upstream returned invalid JSON")

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.Endpoint, e.StatusCode)
}

// Fetcher is what the proxy needs from the content API.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (json.RawMessage, error)
}

// Client is a plain HTTP client for the Studio Ghibli content API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch GETs endpoint (e.g. "/films") and returns the body if it is valid JSON.
func (c *Client) Fetch(ctx context.Context, endpoint string) (json.RawMessage, error) {
	start := time.Now()
	category := strings.Trim(endpoint, "/")

	body, err := c.get(ctx, endpoint)

	metrics.UpstreamRequestDuration.WithLabelValues(category).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(category, "error").Inc()
		logger.Log.Error("Upstream request failed",
			zap.String("endpoint", endpoint),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(category, "ok").Inc()
	logger.Log.Debug("Upstream request succeeded",
		zap.String("endpoint", endpoint),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return body, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("upstream %s: read body: %w", endpoint, err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w from %s", ErrInvalidPayload, endpoint)
	}

	return json.RawMessage(body), nil
}
