package cafe24

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/pkg/logging"
	"github.com/shopops/backoffice/pkg/metrics"
	"github.com/shopops/backoffice/pkg/resilience"
	"github.com/shopops/backoffice/pkg/tracing"
)

var tracer = otel.Tracer("backoffice/cafe24")

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 4 << 20

// Config holds the marketplace connection settings
type Config struct {
	MallID       string
	APIVersion   string
	ShopNo       int
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Timeout      time.Duration

	// BaseURL overrides https://{mall_id}.cafe24api.com/api/v2
	BaseURL string
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return fmt.Sprintf("https://%s.cafe24api.com/api/v2", c.MallID)
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

// BreakerConfig returns the circuit breaker settings for the Admin API.
// Only transport failures, throttling and 5xx count against the breaker.
func BreakerConfig(m *metrics.Metrics) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig("cafe24")
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || !domain.IsTemporary(err)
	}
	cfg.OnStateChange = func(name string, _, to gobreaker.State) {
		m.SetCircuitBreakerState(name, resilience.StateValue(to))
	}
	return cfg
}

// Client calls the Cafe24 Admin REST API. It implements domain.OrderSource,
// domain.ShipmentRegistrar and domain.ProductUpdater.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	tokens     domain.TokenProvider
	breaker    *resilience.CircuitBreaker
	retry      *resilience.RetryConfig
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a new Admin API client. breaker may be nil.
func NewClient(cfg Config, tokens domain.TokenProvider, breaker *resilience.CircuitBreaker, logger *logging.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}

	retry := resilience.DefaultRetryConfig()
	retry.RetryableErrors = domain.IsTemporary

	return &Client{
		cfg:        cfg,
		baseURL:    cfg.baseURL(),
		httpClient: &http.Client{Timeout: cfg.timeout()},
		tokens:     tokens,
		breaker:    breaker,
		retry:      retry,
		logger:     logger.WithComponent("cafe24"),
		metrics:    m,
	}
}

// call performs one authenticated JSON request. out may be nil.
func (c *Client) call(ctx context.Context, operation, method, path string, query url.Values, body, out any) error {
	ctx, span := tracer.Start(ctx, "cafe24."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cafe24.mall_id", c.cfg.MallID),
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		),
	)
	defer span.End()

	start := time.Now()
	status := 0
	fn := func() (interface{}, error) {
		var err error
		status, err = c.roundTrip(ctx, operation, method, path, query, body, out)
		return nil, err
	}

	var err error
	if c.breaker != nil {
		_, err = c.breaker.Execute(ctx, fn)
	} else {
		_, err = fn()
	}

	duration := time.Since(start)
	c.metrics.RecordCafe24Request(operation, status, duration)
	c.logger.ExternalCall(ctx, "cafe24", operation, status, duration)
	span.SetAttributes(attribute.Int("http.status_code", status))

	if err == nil {
		return nil
	}
	tracing.RecordError(span, err)

	var remote *domain.RemoteCallError
	if errors.As(err, &remote) || errors.Is(err, domain.ErrTokenNotFound) || errors.Is(err, domain.ErrTokenExpired) {
		return err
	}
	// Open breaker or cancelled context.
	return &domain.RemoteCallError{Operation: operation, Err: err}
}

func (c *Client) roundTrip(ctx context.Context, operation, method, path string, query url.Values, body, out any) (int, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to obtain access token: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode %s request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Cafe24-Api-Version", c.cfg.APIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &domain.RemoteCallError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, &domain.RemoteCallError{Operation: operation, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, parseError(operation, resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s response: %w", operation, err)
		}
	}
	return resp.StatusCode, nil
}

type errorBody struct {
	Error struct {
		Code     json.RawMessage   `json:"code"`
		Message  string            `json:"message"`
		MoreInfo json.RawMessage   `json:"more_info"`
		Details  []json.RawMessage `json:"details"`
	} `json:"error"`
}

// parseError turns a non-2xx response into a RemoteCallError. The raw body is
// always kept; message and details are filled when the body has the
// {"error":{...}} shape.
func parseError(operation string, status int, raw []byte) *domain.RemoteCallError {
	remote := &domain.RemoteCallError{
		Operation:  operation,
		StatusCode: status,
		Body:       strings.TrimSpace(string(raw)),
	}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return remote
	}

	remote.Code = strings.Trim(string(body.Error.Code), `"`)
	remote.Message = body.Error.Message
	for _, d := range body.Error.Details {
		remote.Details = append(remote.Details, rawText(d))
	}
	remote.Details = append(remote.Details, moreInfo(body.Error.MoreInfo)...)
	return remote
}

func moreInfo(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return []string{rawText(raw)}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s: %s", k, rawText(fields[k])))
	}
	return out
}

// rawText unquotes JSON strings and returns anything else as compact JSON
func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
