package nexcart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/nexcart/storefront/internal/config"
)

// ErrNoCredential is returned by authenticated calls when no access token is available.
// No request is sent in that case.
var ErrNoCredential = errors.New("no access token")

// TokenSource supplies the bearer token for authenticated calls.
// An empty token with a nil error means the user is not signed in.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// RequestObserver receives the outcome of every backend round trip
type RequestObserver interface {
	ObserveRequest(operation string, status int, elapsed time.Duration)
}

// APIError is a non-success backend response
type APIError struct {
	StatusCode int
	Detail     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("nexcart API error: status %d, body: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	observer   RequestObserver
	logger     *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the instrumented default client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver reports request durations, e.g. to prometheus
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a new NexCart REST client
func NewClient(cfg config.APIConfig, tokens TokenSource, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		},
		tokens: tokens,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasCredential reports whether an access token is currently available
func (c *Client) HasCredential(ctx context.Context) bool {
	token, err := c.token(ctx)
	return err == nil && token != ""
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	return c.tokens.AccessToken(ctx)
}

// call describes one backend round trip
type call struct {
	operation string
	method    string
	path      string
	auth      bool
	body      any
}

// do executes the request and decodes a JSON response into out when out is non-nil
func (c *Client) do(ctx context.Context, req call, out any) error {
	raw, err := c.doRaw(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", req.operation, err)
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, req call) ([]byte, error) {
	var token string
	if req.auth {
		t, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read access token: %w", err)
		}
		if t == "" {
			return nil, ErrNoCredential
		}
		token = t
	}

	var payload io.Reader
	if req.body != nil {
		jsonData, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewBuffer(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(req.operation, 0, start)
		return nil, fmt.Errorf("failed to execute %s request: %w", req.operation, err)
	}
	defer resp.Body.Close()
	c.observe(req.operation, resp.StatusCode, start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		var detail struct {
			Detail string `json:"detail"`
			Error  string `json:"error"`
		}
		if json.Unmarshal(body, &detail) == nil {
			apiErr.Detail = detail.Detail
			if apiErr.Detail == "" {
				apiErr.Detail = detail.Error
			}
		}
		c.logger.Debug("NexCart API returned error",
			zap.String("operation", req.operation),
			zap.Int("status", resp.StatusCode),
		)
		return nil, apiErr
	}

	return body, nil
}

func (c *Client) observe(operation string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(operation, status, time.Since(start))
	}
}
