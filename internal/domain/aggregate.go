package domain

import "fmt"

// AggregateRoute reduces a successful response to a RouteResult using its
// first route only. Totals are summed over legs; coordinates and waypoint
// records are collected from every step in order.
func AggregateRoute(resp DirectionsResponse) (RouteResult, error) {
	if resp.Status != "" && resp.Status != "OK" {
		return RouteResult{}, NewServiceError(resp.Status, resp.ErrorMessage)
	}
	if len(resp.Routes) == 0 {
		return RouteResult{}, ErrNoRouteFound
	}
	route := resp.Routes[0]

	var meters, seconds float64
	coords := []LatLng{}
	waypoints := []WaypointInfo{}
	for li, leg := range route.Legs {
		meters += leg.Distance.Value
		seconds += leg.Duration.Value
		for si, step := range leg.Steps {
			points, err := DecodePolyline(step.Polyline.Points)
			if err != nil {
				return RouteResult{}, &TransportError{Err: fmt.Errorf("leg %d step %d: %w", li, si, err)}
			}
			coords = append(coords, points...)
			waypoints = append(waypoints, WaypointInfo{
				Distance:    step.Distance,
				EndLocation: step.EndLocation,
			})
		}
	}

	// Responses may be shared by a cache, so the result owns its fare.
	var fare *Fare
	if route.Fare != nil {
		f := *route.Fare
		fare = &f
	}

	return RouteResult{
		Coordinates: coords,
		DistanceKm:  meters / 1000,
		DurationMin: seconds / 60,
		Waypoints:   waypoints,
		Fare:        fare,
		ResolvedAt:  clock.Now().UTC(),
	}, nil
}
