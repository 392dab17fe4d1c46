// Package domain models directions requests and the routes resolved from them.
//
// # Data Source
//
// Routes come from a Google Directions compatible HTTP endpoint
// (https://maps.googleapis.com/maps/api/directions/json by default). The
// request is a GET with the query parameters origin, waypoints, destination,
// key, mode, language and region. The response is JSON:
//
//	{
//	  "status": "OK",
//	  "error_message": "...",            // only on failure
//	  "routes": [{
//	    "fare": {"currency": "USD", "value": 6, "text": "$6.00"},
//	    "legs": [{
//	      "distance": {"text": "1.0 km", "value": 1000},
//	      "duration": {"text": "1 min", "value": 60},
//	      "steps": [{
//	        "polyline": {"points": "_p~iF~ps|U_ulLnnqC"},
//	        "distance": {...}, "duration": {...},
//	        "end_location": {"lat": 40.7, "lng": -120.95}
//	      }]
//	    }]
//	  }]
//	}
//
// # Locations
//
// A [Location] is either a coordinate pair or an opaque place string. On the
// wire both become a single token: coordinates are written as "lat,lng" using
// the shortest decimal form that round-trips, place strings pass through
// untouched. A coordinate with a zero component does not count as a
// coordinate (see [Location.Normalize]).
//
// # Waypoints
//
// Waypoints are normalized and joined with "|". When waypoint optimization is
// requested the literal prefix "optimize:true|" is prepended, even when there
// are no waypoints.
//
// # Geometry
//
// Each step carries its path as an encoded polyline (signed deltas, 5-bit
// chunks offset by 63, 1e-5 precision). [AggregateRoute] decodes every step of
// the first route, in leg then step order, into one flat coordinate sequence.
// Points shared by adjacent steps are kept, not deduplicated.
//
// # Totals
//
// Distance and duration are summed over legs, not steps:
//
//	DistanceKm  = Σ leg.distance.value / 1000
//	DurationMin = Σ leg.duration.value / 60
package domain
