package domain

import (
	"strings"
)

// Defaults applied when a query leaves the field empty.
const (
	DefaultBaseURL  = "https://maps.googleapis.com/maps/api/directions/json"
	DefaultLanguage = "en"

	optimizePrefix = "optimize:true|"
)

// RouteQuery is the caller-facing description of a route to resolve.
type RouteQuery struct {
	Origin            Location   `json:"origin"`
	Destination       Location   `json:"destination"`
	Waypoints         []Location `json:"waypoints,omitempty"`
	Mode              Mode       `json:"mode,omitempty"`
	Language          string     `json:"language,omitempty"`
	Region            string     `json:"region,omitempty"`
	OptimizeWaypoints bool       `json:"optimize_waypoints,omitempty"`
	APIKey            string     `json:"-"`
	BaseURL           string     `json:"-"`
}

// RouteRequest is a fully normalized request, ready to be sent.
type RouteRequest struct {
	Origin            string
	Destination       string
	Waypoints         []string
	OptimizeWaypoints bool
	Mode              Mode
	Language          string
	Region            string
	APIKey            string
	BaseURL           string
}

// BuildRouteRequest normalizes a query and applies defaults. It returns
// ErrMissingInput when origin or destination is absent.
func BuildRouteRequest(q RouteQuery) (RouteRequest, error) {
	if q.Origin.IsZero() || q.Destination.IsZero() {
		return RouteRequest{}, ErrMissingInput
	}
	origin := q.Origin.Normalize()
	destination := q.Destination.Normalize()

	mode := q.Mode
	if mode == "" {
		mode = ModeDriving
	}
	language := q.Language
	if language == "" {
		language = DefaultLanguage
	}

	var waypoints []string
	if len(q.Waypoints) > 0 {
		waypoints = make([]string, len(q.Waypoints))
		for i, w := range q.Waypoints {
			waypoints[i] = w.Normalize()
		}
	}

	return RouteRequest{
		Origin:            origin,
		Destination:       destination,
		Waypoints:         waypoints,
		OptimizeWaypoints: q.OptimizeWaypoints,
		Mode:              mode,
		Language:          language,
		Region:            q.Region,
		APIKey:            q.APIKey,
		BaseURL:           q.BaseURL,
	}, nil
}

// WaypointParam returns the value of the waypoints query parameter.
func (r RouteRequest) WaypointParam() string {
	joined := strings.Join(r.Waypoints, "|")
	if r.OptimizeWaypoints {
		return optimizePrefix + joined
	}
	return joined
}

// StartInfo is reported when a fetch begins.
type StartInfo struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Waypoints   []string `json:"waypoints"`
}

// Start describes the request as it is about to be sent. Waypoints are the
// "|"-separated pieces of the waypoint parameter, so an optimized request
// reports "optimize:true" as its first element.
func (r RouteRequest) Start() StartInfo {
	info := StartInfo{Origin: r.Origin, Destination: r.Destination, Waypoints: []string{}}
	if p := r.WaypointParam(); p != "" {
		info.Waypoints = strings.Split(p, "|")
	}
	return info
}

// ResolvedRoute pairs a request with its result for downstream consumers.
type ResolvedRoute struct {
	Origin      string      `json:"origin"`
	Destination string      `json:"destination"`
	Waypoints   []string    `json:"waypoints"`
	Mode        Mode        `json:"mode"`
	Route       RouteResult `json:"route"`
}

// NewResolvedRoute combines a request and its aggregated result.
func NewResolvedRoute(req RouteRequest, result RouteResult) ResolvedRoute {
	return ResolvedRoute{
		Origin:      req.Origin,
		Destination: req.Destination,
		Waypoints:   req.Waypoints,
		Mode:        req.Mode,
		Route:       result,
	}
}
