package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/route-directions/internal/domain"
	"github.com/couchcryptid/route-directions/internal/observability"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 16 << 20

// RequestFunc builds the outgoing HTTP request for a route request. It
// replaces the default query assembly entirely.
type RequestFunc func(ctx context.Context, req domain.RouteRequest) (*http.Request, error)

// Option configures a Client.
type Option func(*Client)

// WithRequestFunc installs a custom request builder.
func WithRequestFunc(fn RequestFunc) Option {
	return func(c *Client) { c.requestFunc = fn }
}

// Client implements domain.DirectionsFetcher against the Google Directions API.
type Client struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	requestFunc RequestFunc
	clock       clockwork.Clock // measures API latency
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewClient creates a directions client. apiKey and baseURL are used when a
// request does not carry its own; an empty baseURL selects the Google endpoint.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = domain.DefaultBaseURL
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchDirections performs one GET against the directions endpoint. There are
// no retries.
func (c *Client) FetchDirections(ctx context.Context, req domain.RouteRequest) (domain.DirectionsResponse, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return domain.DirectionsResponse{}, c.fail("transport_error", req, &domain.TransportError{Err: err})
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(httpReq)
	c.metrics.DirectionsAPIDuration.Observe(c.clock.Since(start).Seconds())
	if err != nil {
		return domain.DirectionsResponse{}, c.fail("transport_error", req, &domain.TransportError{Err: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.DirectionsResponse{}, c.fail("transport_error", req, &domain.TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)})
	}

	var out domain.DirectionsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.DirectionsResponse{}, c.fail("transport_error", req, &domain.TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)})
	}
	if out.Status == "" && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return domain.DirectionsResponse{}, c.fail("transport_error", req, &domain.TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected HTTP status %s", resp.Status)})
	}

	if out.Status != "OK" {
		return domain.DirectionsResponse{}, c.fail("service_error", req, domain.NewServiceError(out.Status, out.ErrorMessage))
	}
	if len(out.Routes) == 0 {
		return domain.DirectionsResponse{}, c.fail("no_route", req, domain.ErrNoRouteFound)
	}

	c.metrics.DirectionsRequests.WithLabelValues("ok").Inc()
	return out, nil
}

func (c *Client) fail(outcome string, req domain.RouteRequest, err error) error {
	c.metrics.DirectionsRequests.WithLabelValues(outcome).Inc()
	if outcome == "transport_error" {
		c.logger.Warn("directions request failed",
			"origin", req.Origin,
			"destination", req.Destination,
			"error", err,
		)
	}
	return err
}

func (c *Client) buildRequest(ctx context.Context, req domain.RouteRequest) (*http.Request, error) {
	if c.requestFunc != nil {
		httpReq, err := c.requestFunc(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("custom request: %w", err)
		}
		if httpReq == nil {
			return nil, errors.New("custom request: nil request")
		}
		return httpReq, nil
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(req), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return httpReq, nil
}

// requestURL assembles base?origin&waypoints&destination&key&mode&language&region.
// Parameter order is fixed and region is sent even when empty.
func (c *Client) requestURL(req domain.RouteRequest) string {
	base := req.BaseURL
	if base == "" {
		base = c.baseURL
	}
	key := req.APIKey
	if key == "" {
		key = c.apiKey
	}
	language := req.Language
	if language == "" {
		language = domain.DefaultLanguage
	}

	params := []struct{ name, value string }{
		{"origin", req.Origin},
		{"waypoints", req.WaypointParam()},
		{"destination", req.Destination},
		{"key", key},
		{"mode", req.Mode.Param()},
		{"language", language},
		{"region", req.Region},
	}

	buf := make([]byte, 0, len(base)+128)
	buf = append(buf, base...)
	buf = append(buf, '?')
	for i, p := range params {
		if i > 0 {
			buf = append(buf, '&')
		}
		buf = append(buf, p.name...)
		buf = append(buf, '=')
		buf = append(buf, url.QueryEscape(p.value)...)
	}
	return string(buf)
}
