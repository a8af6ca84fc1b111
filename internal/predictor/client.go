// Package predictor talks to the remote heart disease prediction service.
package predictor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kamilpajak/heartrisk/pkg/assessment"
	"github.com/kamilpajak/heartrisk/pkg/prediction"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// ErrNotConfigured is returned when no endpoint address was supplied.
var ErrNotConfigured = errors.New("prediction endpoint is not configured")

// TransportError wraps a network failure or a response that could not be
// used. Op "check" means the body decoded but broke the result invariants;
// its Err wraps prediction.ErrMalformed.
type TransportError struct {
	Op  string // "request", "read", "decode" or "check"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("predictor %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client posts assessments to the prediction endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout. A client passed through
// WithHTTPClient is copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a client for the given endpoint URL. An empty endpoint is
// accepted here and reported by Predict as ErrNotConfigured.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Predict sends one assessment and returns the decoded service response.
// Any decodable response carrying a success flag is returned as is, whatever
// the HTTP status; the caller distinguishes service-reported failures by
// Result.Success.
func (c *Client) Predict(ctx context.Context, in assessment.Input) (*prediction.Result, error) {
	if c.endpoint == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode assessment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Op: "read", Err: err}
	}

	result, err := decodeResult(raw)
	if err != nil {
		op := "decode"
		if errors.Is(err, prediction.ErrMalformed) {
			op = "check"
		}
		return nil, &TransportError{Op: op, Err: fmt.Errorf("status %s: %w", resp.Status, err)}
	}
	return result, nil
}

func decodeResult(raw []byte) (*prediction.Result, error) {
	var head struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	if head.Success == nil {
		return nil, fmt.Errorf("%w: missing success flag", prediction.ErrMalformed)
	}

	var result prediction.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	if err := result.Check(); err != nil {
		return nil, err
	}
	return &result, nil
}
