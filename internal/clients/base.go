package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/shop-client-go/internal/middleware"
)

// ErrUnavailable covers transport failures and an open circuit breaker.
var ErrUnavailable = errors.New("gateway unavailable")

// GatewayError carries the human-readable message the gateway attached to a
// non-2xx response.
type GatewayError struct {
	Upstream   string
	Op         string
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Upstream, e.Op, e.StatusCode, e.Message)
}

// TokenSource hands out the current session token. Every authenticated call
// asks for it again.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

type Client struct {
	Name    string
	BaseURL *url.URL
	HTTP    *http.Client

	tokens  TokenSource
	breaker *gobreaker.CircuitBreaker[response]
	metrics *metrics.Metrics
}

type Option func(*Client)

func WithTokens(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithBreaker trips after MaxFailures consecutive transport or 5xx failures.
// A zero MaxFailures leaves the client without a breaker.
func WithBreaker(s BreakerSettings) Option {
	return func(c *Client) {
		if s.MaxFailures == 0 {
			return
		}
		c.breaker = gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
			Name:    c.Name,
			Timeout: s.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= s.MaxFailures
			},
		})
	}
}

// BreakerState reports the breaker's current state, or "" without one.
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return ""
	}
	return c.breaker.State().String()
}

func NewClient(name string, baseURL string, httpClient *http.Client, opts ...Option) *Client {
	u, err := url.Parse(baseURL)
	if err != nil {
		// Fail fast: config error
		panic(fmt.Sprintf("invalid %s base url %q: %v", name, baseURL, err))
	}
	c := &Client{Name: name, BaseURL: u, HTTP: httpClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do issues an unauthenticated request and hands back the raw response.
func (c *Client) Do(ctx context.Context, method, path, rawQuery string, body io.Reader, inHeaders http.Header) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, rawQuery, body)
	if err != nil {
		return nil, err
	}
	copyHeaders(req.Header, inHeaders)

	return c.HTTP.Do(req)
}

func (c *Client) newRequest(ctx context.Context, method, path, rawQuery string, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: strings.TrimPrefix(path, "/"), RawQuery: rawQuery}
	base := *c.BaseURL
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	u := base.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}

	// Ensure correlation id propagated to the gateway
	if cid := middleware.GetCorrelationID(ctx); cid != "" {
		req.Header.Set(middleware.HeaderCorrelationID, cid)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

type response struct {
	status int
	body   []byte
}

// doJSON runs one authenticated JSON call. in and out may be nil.
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	if c.tokens == nil {
		return fmt.Errorf("%s %s: client has no token source", c.Name, op)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	ctx, span := otel.Tracer("shop-client/clients").Start(ctx, c.Name+" "+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("gateway.path", path),
		),
	)
	defer span.End()
	err = c.doTraced(ctx, op, method, path, query, token, in, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) doTraced(ctx context.Context, op, method, path string, query url.Values, token string, in, out any) error {
	var err error

	var payload []byte
	if in != nil {
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: marshal request: %w", c.Name, op, err)
		}
	}

	start := time.Now()
	resp, err := c.execute(func() (response, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := c.newRequest(ctx, method, path, query.Encode(), body)
		if err != nil {
			return response{}, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		httpResp, err := c.HTTP.Do(req)
		if err != nil {
			return response{}, err
		}
		defer httpResp.Body.Close()

		raw, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return response{}, fmt.Errorf("read body: %w", err)
		}
		r := response{status: httpResp.StatusCode, body: raw}
		if r.status >= 500 {
			// counted by the breaker, unwrapped below
			return r, c.gatewayError(op, r)
		}
		return r, nil
	})
	took := time.Since(start)

	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) {
			c.metrics.ObserveGateway(c.Name, op, "gateway_error", took)
			return gwErr
		}
		c.metrics.ObserveGateway(c.Name, op, "unavailable", took)
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, c.Name, op, err)
	}

	if resp.status < 200 || resp.status > 299 {
		c.metrics.ObserveGateway(c.Name, op, "gateway_error", took)
		return c.gatewayError(op, resp)
	}
	c.metrics.ObserveGateway(c.Name, op, "ok", took)

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", c.Name, op, err)
	}
	return nil
}

func (c *Client) execute(fn func() (response, error)) (response, error) {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Execute(fn)
}

func (c *Client) gatewayError(op string, r response) *GatewayError {
	return &GatewayError{
		Upstream:   c.Name,
		Op:         op,
		StatusCode: r.status,
		Message:    errorMessage(r),
	}
}

// errorMessage prefers the gateway's "message" field, then "error", then the
// raw body, then the status text.
func errorMessage(r response) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(r.body, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}

	if text := strings.TrimSpace(string(r.body)); text != "" && !strings.HasPrefix(text, "{") {
		if len(text) > 200 {
			text = text[:200]
		}
		return text
	}
	return http.StatusText(r.status)
}

func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		if isHopByHopHeader(k) {
			continue
		}
		if strings.EqualFold(k, "Host") {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

// Hop-by-hop headers (RFC 7230)
func isHopByHopHeader(k string) bool {
	switch http.CanonicalHeaderKey(k) {
	case "Connection", "Proxy-Connection", "Keep-Alive",
		"Proxy-Authenticate", "Proxy-Authorization",
		"Te", "Trailer", "Transfer-Encoding", "Upgrade":
		return true
	default:
		return false
	}
}
