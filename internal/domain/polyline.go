package domain

import (
	"fmt"
	"math"

	"googlemaps.github.io/maps"
)

const polylineFactor = 1e5

// DecodePolyline decodes a Google encoded polyline at 1e-5 precision.
// If the string ends in the middle of a value, the points decoded so far are
// returned together with ErrInvalidPolyline.
func DecodePolyline(encoded string) ([]LatLng, error) {
	cut := completePairs(encoded)
	path, err := maps.DecodePolyline(encoded[:cut])
	if err != nil {
		return []LatLng{}, fmt.Errorf("%w: %v", ErrInvalidPolyline, err)
	}

	points := make([]LatLng, len(path))
	for i, p := range path {
		points[i] = LatLng{Latitude: snap(p.Lat), Longitude: snap(p.Lng)}
	}
	if cut != len(encoded) {
		return points, ErrInvalidPolyline
	}
	return points, nil
}

// completePairs returns the length of the longest prefix of encoded that
// holds whole latitude/longitude pairs. A value ends on a byte below 0x20
// after the 63 offset is removed.
func completePairs(encoded string) int {
	cut, values := 0, 0
	for i := 0; i < len(encoded); i++ {
		if encoded[i]-63 < 0x20 {
			values++
			if values%2 == 0 {
				cut = i + 1
			}
		}
	}
	return cut
}

// snap removes the float noise of the library's 1e-5 multiply so a decoded
// value equals the literal it was encoded from.
func snap(v float64) float64 {
	return math.Round(v*polylineFactor) / polylineFactor
}

// EncodePolyline is the inverse of DecodePolyline.
func EncodePolyline(points []LatLng) string {
	path := make([]maps.LatLng, len(points))
	for i, p := range points {
		path[i] = maps.LatLng{Lat: p.Latitude, Lng: p.Longitude}
	}
	return maps.Encode(path)
}
