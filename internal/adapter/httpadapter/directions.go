package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/couchcryptid/route-directions/internal/domain"
	"github.com/couchcryptid/route-directions/internal/observability"
	"github.com/couchcryptid/route-directions/internal/resolver"
)

// RoutePublisher forwards resolved routes downstream.
type RoutePublisher interface {
	PublishRoutes(ctx context.Context, routes ...domain.ResolvedRoute) error
}

// Defaults fill query parameters the caller leaves out.
type Defaults struct {
	Mode              domain.Mode
	Language          string
	Region            string
	OptimizeWaypoints bool
}

// DirectionsHandler serves GET /v1/directions. Each request gets its own
// resolver.Controller, closed when the request ends.
type DirectionsHandler struct {
	fetcher   domain.DirectionsFetcher
	publisher RoutePublisher
	defaults  Defaults
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// NewDirectionsHandler creates the handler. publisher may be nil.
// The handler reports ready as soon as it is constructed.
func NewDirectionsHandler(fetcher domain.DirectionsFetcher, publisher RoutePublisher, defaults Defaults, logger *slog.Logger, metrics *observability.Metrics) *DirectionsHandler {
	h := &DirectionsHandler{
		fetcher:   fetcher,
		publisher: publisher,
		defaults:  defaults,
		logger:    logger,
		metrics:   metrics,
	}
	h.ready.Store(fetcher != nil)
	return h
}

// CheckReadiness returns nil while the handler accepts traffic.
func (h *DirectionsHandler) CheckReadiness(_ context.Context) error {
	if !h.ready.Load() {
		return errors.New("directions handler not accepting requests")
	}
	return nil
}

// Drain marks the handler not ready so load balancers stop routing to it
// before the server shuts down. Requests already in flight still complete.
func (h *DirectionsHandler) Drain() {
	h.ready.Store(false)
}

type directionsResponse struct {
	Coordinates []domain.LatLng       `json:"coordinates"`
	DistanceKm  float64               `json:"distance_km"`
	DurationMin float64               `json:"duration_min"`
	Waypoints   []domain.WaypointInfo `json:"waypoints"`
	Fare        *domain.Fare          `json:"fare,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}

func (h *DirectionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	in, err := h.parseInputs(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctrl := resolver.New(h.fetcher, h.logger, h.metrics, resolver.WithCallbacks(resolver.Callbacks{
		OnStart: func(info domain.StartInfo) {
			h.logger.Debug("route fetch started", "origin", info.Origin, "destination", info.Destination, "waypoints", info.Waypoints)
		},
	}))
	defer ctrl.Close()

	result, err := ctrl.Resolve(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if h.publisher != nil {
		h.publish(r.Context(), in, result)
	}

	writeJSON(w, http.StatusOK, directionsResponse{
		Coordinates: result.Coordinates,
		DistanceKm:  result.DistanceKm,
		DurationMin: result.DurationMin,
		Waypoints:   result.Waypoints,
		Fare:        result.Fare,
	})
}

func (h *DirectionsHandler) publish(ctx context.Context, in resolver.Inputs, result domain.RouteResult) {
	req, err := domain.BuildRouteRequest(in.Query())
	if err != nil {
		return
	}
	route := domain.NewResolvedRoute(req, result)
	if err := h.publisher.PublishRoutes(ctx, route); err != nil {
		h.logger.Error("route publish failed", "origin", route.Origin, "destination", route.Destination, "error", err)
	}
}

func (h *DirectionsHandler) parseInputs(r *http.Request) (resolver.Inputs, error) {
	q := r.URL.Query()

	mode := h.defaults.Mode
	if s := q.Get("mode"); s != "" {
		m, err := domain.ParseMode(s)
		if err != nil {
			return resolver.Inputs{}, err
		}
		mode = m
	}

	optimize := h.defaults.OptimizeWaypoints
	if s := q.Get("optimize"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return resolver.Inputs{}, errors.New("invalid optimize parameter")
		}
		optimize = b
	}

	in := resolver.Inputs{
		Origin:            domain.ParseLocation(q.Get("origin")),
		Destination:       domain.ParseLocation(q.Get("destination")),
		Mode:              mode,
		Language:          valueOr(q.Get("language"), h.defaults.Language),
		Region:            valueOr(q.Get("region"), h.defaults.Region),
		OptimizeWaypoints: optimize,
	}
	for _, w := range q["waypoint"] {
		in.Waypoints = append(in.Waypoints, domain.ParseLocation(w))
	}
	return in, nil
}

func (h *DirectionsHandler) writeError(w http.ResponseWriter, err error) {
	var se *domain.ServiceError
	switch {
	case errors.Is(err, domain.ErrMissingInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNoRouteFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &se):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: se.Message, Status: se.Status})
	case errors.Is(err, resolver.ErrClosed):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	}
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
