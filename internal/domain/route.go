package domain

import (
	"context"
	"time"
)

// TextValue is a measured quantity with its display text.
// Distances are in meters, durations in seconds.
type TextValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// LatLngLiteral is the service's coordinate shape.
type LatLngLiteral struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Fare is the transit fare, passed through untouched.
type Fare struct {
	Currency string  `json:"currency"`
	Value    float64 `json:"value"`
	Text     string  `json:"text"`
}

// DirectionsResponse is the decoded service response.
type DirectionsResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Routes       []Route `json:"routes"`
}

// Route is one alternative in a response. Only the first is used.
type Route struct {
	Summary string `json:"summary,omitempty"`
	Legs    []Leg  `json:"legs"`
	Fare    *Fare  `json:"fare,omitempty"`
}

// Leg is the part of a route between two consecutive stops.
type Leg struct {
	Distance TextValue `json:"distance"`
	Duration TextValue `json:"duration"`
	Steps    []Step    `json:"steps"`
}

// Step is a single maneuver with its encoded path.
type Step struct {
	Polyline    EncodedPolyline `json:"polyline"`
	Distance    TextValue       `json:"distance"`
	Duration    TextValue       `json:"duration"`
	EndLocation LatLngLiteral   `json:"end_location"`
}

// EncodedPolyline holds a path in the Google polyline format.
type EncodedPolyline struct {
	Points string `json:"points"`
}

// WaypointInfo records where one step ended and how long it was.
type WaypointInfo struct {
	Distance    TextValue     `json:"distance"`
	EndLocation LatLngLiteral `json:"end_location"`
}

// RouteResult is the aggregated form of the first route in a response.
type RouteResult struct {
	Coordinates []LatLng       `json:"coordinates"`
	DistanceKm  float64        `json:"distance_km"`
	DurationMin float64        `json:"duration_min"`
	Waypoints   []WaypointInfo `json:"waypoints"`
	Fare        *Fare          `json:"fare,omitempty"`
	ResolvedAt  time.Time      `json:"resolved_at"`
}

// DirectionsFetcher sends a request to the directions service.
// Implementations return *ServiceError for a non-OK status and
// *TransportError for network or decode failures.
type DirectionsFetcher interface {
	FetchDirections(ctx context.Context, req RouteRequest) (DirectionsResponse, error)
}
