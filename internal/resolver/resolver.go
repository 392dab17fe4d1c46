// Package resolver owns the lifecycle of one route display: it decides when a
// route is (re)fetched, keeps the current result, and suppresses results that
// arrive after the owner has gone away.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/couchcryptid/route-directions/internal/domain"
	"github.com/couchcryptid/route-directions/internal/observability"
)

var (
	// ErrClosed is returned once the controller has been closed. No callback fires.
	ErrClosed = errors.New("resolver closed")

	// ErrUnchanged is returned by Update when the route-defining inputs did not change.
	ErrUnchanged = errors.New("inputs unchanged")
)

// Status is the display state of a controller.
type Status int

const (
	StatusIdle Status = iota
	StatusHasRoute
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusHasRoute:
		return "has_route"
	default:
		return "unknown"
	}
}

// State is a point-in-time view of the controller.
type State struct {
	Status Status
	Result *domain.RouteResult
}

// Inputs are the caller-supplied properties of a route display.
type Inputs struct {
	Origin            domain.Location   `json:"origin"`
	Destination       domain.Location   `json:"destination"`
	Waypoints         []domain.Location `json:"waypoints,omitempty"`
	Mode              domain.Mode       `json:"mode,omitempty"`
	Language          string            `json:"language,omitempty"`
	Region            string            `json:"region,omitempty"`
	OptimizeWaypoints bool              `json:"optimize_waypoints,omitempty"`

	// ResetOnChange controls whether the current route is cleared before a
	// new attempt. nil means the controller default.
	ResetOnChange *bool `json:"reset_on_change,omitempty"`
}

// Query returns the route query described by the inputs.
func (in Inputs) Query() domain.RouteQuery {
	return domain.RouteQuery{
		Origin:            in.Origin,
		Destination:       in.Destination,
		Waypoints:         in.Waypoints,
		Mode:              in.Mode,
		Language:          in.Language,
		Region:            in.Region,
		OptimizeWaypoints: in.OptimizeWaypoints,
	}
}

// routeKey holds the inputs whose change triggers a new attempt.
type routeKey struct {
	Origin      domain.Location
	Destination domain.Location
	Waypoints   []domain.Location
	Mode        domain.Mode
}

func (in Inputs) key() routeKey {
	return routeKey{
		Origin:      in.Origin,
		Destination: in.Destination,
		Waypoints:   slices.Clone(in.Waypoints),
		Mode:        in.Mode,
	}
}

// Callbacks are invoked synchronously on the goroutine running the attempt.
// They must not call Close.
type Callbacks struct {
	OnStart func(domain.StartInfo)
	OnReady func(domain.RouteResult)
	OnError func(error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithCallbacks registers lifecycle callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(c *Controller) { c.callbacks = cb }
}

// WithResetOnChange sets the reset policy used when Inputs.ResetOnChange is nil.
// The default is true.
func WithResetOnChange(reset bool) Option {
	return func(c *Controller) { c.resetOnChange = reset }
}

// Controller resolves routes for one display and holds the current result.
// It is safe for concurrent use; overlapping attempts all run and the last to
// complete wins.
type Controller struct {
	fetcher       domain.DirectionsFetcher
	logger        *slog.Logger
	metrics       *observability.Metrics
	callbacks     Callbacks
	resetOnChange bool

	// token is canceled by Close. lifecycle is held for reading while a
	// result is applied so that nothing is delivered after Close returns.
	token     context.Context
	cancel    context.CancelFunc
	lifecycle sync.RWMutex

	mu    sync.Mutex
	state State
	last  *routeKey
}

// New creates a controller in the Idle state.
func New(fetcher domain.DirectionsFetcher, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Controller {
	token, cancel := context.WithCancel(context.Background())
	c := &Controller{
		fetcher:       fetcher,
		logger:        logger,
		metrics:       metrics,
		resetOnChange: true,
		token:         token,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Update starts an attempt on the first call and whenever origin, destination,
// waypoints or mode differ from the previous call. Otherwise it returns
// ErrUnchanged without doing anything.
func (c *Controller) Update(ctx context.Context, in Inputs) (domain.RouteResult, error) {
	return c.resolve(ctx, in, true)
}

// Resolve always starts an attempt.
func (c *Controller) Resolve(ctx context.Context, in Inputs) (domain.RouteResult, error) {
	return c.resolve(ctx, in, false)
}

func (c *Controller) resolve(ctx context.Context, in Inputs, onlyOnChange bool) (domain.RouteResult, error) {
	if c.closed() {
		return domain.RouteResult{}, ErrClosed
	}

	key := in.key()
	c.mu.Lock()
	if onlyOnChange && c.last != nil && cmp.Equal(*c.last, key, cmpopts.EquateEmpty()) {
		c.mu.Unlock()
		return domain.RouteResult{}, ErrUnchanged
	}
	mounted := c.last != nil
	c.last = &key
	if mounted && c.shouldReset(in) {
		c.state = State{Status: StatusIdle}
	}
	c.mu.Unlock()

	return c.attempt(ctx, in)
}

func (c *Controller) shouldReset(in Inputs) bool {
	if in.ResetOnChange != nil {
		return *in.ResetOnChange
	}
	return c.resetOnChange
}

func (c *Controller) attempt(ctx context.Context, in Inputs) (domain.RouteResult, error) {
	req, err := domain.BuildRouteRequest(in.Query())
	if err != nil {
		c.metrics.Resolutions.WithLabelValues("skipped").Inc()
		return domain.RouteResult{}, err
	}

	if !c.notifyStart(req.Start()) {
		c.metrics.Resolutions.WithLabelValues("discarded").Inc()
		return domain.RouteResult{}, ErrClosed
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.token, cancel)
	resp, err := c.fetcher.FetchDirections(fetchCtx, req)
	var result domain.RouteResult
	if err == nil {
		result, err = domain.AggregateRoute(resp)
	}
	stop()
	cancel()

	c.lifecycle.RLock()
	defer c.lifecycle.RUnlock()

	if c.closed() {
		c.metrics.Resolutions.WithLabelValues("discarded").Inc()
		return domain.RouteResult{}, ErrClosed
	}

	if err != nil {
		c.setState(State{Status: StatusIdle})
		c.metrics.Resolutions.WithLabelValues("error").Inc()
		c.logger.Warn("route resolution failed",
			"origin", req.Origin,
			"destination", req.Destination,
			"error", err,
		)
		if c.callbacks.OnError != nil {
			c.callbacks.OnError(err)
		}
		return domain.RouteResult{}, err
	}

	stored := result
	c.setState(State{Status: StatusHasRoute, Result: &stored})
	c.metrics.Resolutions.WithLabelValues("ready").Inc()
	if c.callbacks.OnReady != nil {
		c.callbacks.OnReady(result)
	}
	return result, nil
}

func (c *Controller) notifyStart(info domain.StartInfo) bool {
	c.lifecycle.RLock()
	defer c.lifecycle.RUnlock()
	if c.closed() {
		return false
	}
	if c.callbacks.OnStart != nil {
		c.callbacks.OnStart(info)
	}
	return true
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) closed() bool {
	return c.token.Err() != nil
}

// Close invalidates the controller. In-flight fetches are canceled and their
// results dropped without notification. Close is idempotent and always
// returns nil.
func (c *Controller) Close() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.cancel()
	return nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{Status: c.state.Status}
	if c.state.Result != nil {
		r := *c.state.Result
		r.Coordinates = slices.Clone(r.Coordinates)
		r.Waypoints = slices.Clone(r.Waypoints)
		if r.Fare != nil {
			fare := *r.Fare
			r.Fare = &fare
		}
		s.Result = &r
	}
	return s
}

// Coordinates returns the current path, or nil while Idle.
func (c *Controller) Coordinates() []domain.LatLng {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != StatusHasRoute || c.state.Result == nil {
		return nil
	}
	return slices.Clone(c.state.Result.Coordinates)
}
