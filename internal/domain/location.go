package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LatLng is a WGS-84 coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String formats the pair as "lat,lng" without rounding.
func (p LatLng) String() string {
	return strconv.FormatFloat(p.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(p.Longitude, 'f', -1, 64)
}

// Location is either a coordinate pair or a free-text place string.
// The zero value means the location is absent.
type Location struct {
	Point *LatLng
	Place string
}

// At returns a coordinate location.
func At(lat, lng float64) Location {
	return Location{Point: &LatLng{Latitude: lat, Longitude: lng}}
}

// Place returns a place-string location, e.g. "Chicago, IL" or "41.8,-87.6".
func Place(s string) Location {
	return Location{Place: s}
}

// ParseLocation turns user input into a Location. Input of the form
// "<float>,<float>" becomes a coordinate pair, anything else a place string.
func ParseLocation(s string) Location {
	s = strings.TrimSpace(s)
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return Place(s)
	}
	la, errLat := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	lo, errLng := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if errLat != nil || errLng != nil {
		return Place(s)
	}
	return At(la, lo)
}

// IsZero reports whether the location is absent.
func (l Location) IsZero() bool {
	return l.Point == nil && l.Place == ""
}

// Normalize converts the location into the token the directions service
// expects. A coordinate pair is always formatted, including points on the
// equator or the prime meridian; otherwise the place string is returned
// unchanged. No validation is done, malformed input surfaces as a service
// error.
func (l Location) Normalize() string {
	if l.Point != nil {
		return l.Point.String()
	}
	return l.Place
}

// MarshalJSON writes a coordinate location as {"latitude":..,"longitude":..}
// and a place location as a JSON string.
func (l Location) MarshalJSON() ([]byte, error) {
	if l.Point != nil {
		return json.Marshal(l.Point)
	}
	return json.Marshal(l.Place)
}

// UnmarshalJSON accepts either a JSON string or a coordinate object.
func (l *Location) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = Location{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("parse location: %w", err)
		}
		*l = Place(s)
		return nil
	}
	var p LatLng
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parse location: %w", err)
	}
	*l = Location{Point: &p}
	return nil
}
