package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"flowboard/internal/config"
	"flowboard/internal/infrastructure/metrics"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "flowboard/upstream"

	// maxBodyBytes caps how much of an upstream response is buffered
	maxBodyBytes = 10 << 20
)

// Client performs outbound calls to the backend API
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	metrics    *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics records every call on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for call spans
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// NewClient creates a gateway client. Every call is bounded by cfg.Timeout;
// hitting it is reported as a transport failure.
func NewClient(cfg *config.UpstreamConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends method path to upstream. body may be nil, raw JSON
// ([]byte or json.RawMessage) or any value to be marshalled. bearer, when
// non-empty, is sent as "Authorization: Bearer <bearer>".
//
// A nil error means upstream answered: the Response is either KindSuccess or
// KindRejected. A *TransportError means there is no usable answer.
func (c *Client) Call(ctx context.Context, method, path string, body any, bearer string) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "upstream "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", routeOf(path)),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.do(ctx, method, path, body, bearer)
	elapsed := time.Since(start)

	logger := log.Ctx(ctx).With().Str("method", method).Str("upstream_path", routeOf(path)).Dur("elapsed", elapsed).Logger()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.metrics.ObserveUpstream(method, "transport_error", elapsed)
		logger.Warn().Err(err).Msg("upstream call failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.Status))
	if resp.Kind == KindRejected {
		span.SetStatus(codes.Error, http.StatusText(resp.Status))
	}
	c.metrics.ObserveUpstream(method, resp.Kind.String(), elapsed)
	logger.Debug().Int("status", resp.Status).Msg("upstream call completed")
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, bearer string) (*Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, &TransportError{Method: method, Path: routeOf(path), Err: err}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &TransportError{Method: method, Path: routeOf(path), Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Path: routeOf(path), Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Method: method, Path: routeOf(path), Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return &Response{Kind: KindRejected, Status: httpResp.StatusCode, Body: jsonOrEmpty(raw)}, nil
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	} else if !json.Valid(raw) {
		return nil, &TransportError{Method: method, Path: routeOf(path), Err: fmt.Errorf("malformed response body with status %d", httpResp.StatusCode)}
	}
	return &Response{Kind: KindSuccess, Status: httpResp.StatusCode, Body: raw}, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return payload, nil
	}
}

// jsonOrEmpty keeps a valid JSON error body and replaces anything else with {}
func jsonOrEmpty(raw []byte) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 || !json.Valid(raw) {
		return json.RawMessage("{}")
	}
	return raw
}

// routeOf strips the query string so tokens passed as parameters never reach logs or spans
func routeOf(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
