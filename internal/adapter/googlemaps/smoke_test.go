//go:build googlemaps

package googlemaps

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/route-directions/internal/domain"
)

// These tests hit the real Directions API and require DIRECTIONS_API_KEY.
// Run with: go test -tags=googlemaps ./internal/adapter/googlemaps/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	key := os.Getenv("DIRECTIONS_API_KEY")
	if key == "" {
		t.Fatal("DIRECTIONS_API_KEY must be set to run smoke tests")
	}
	return NewClient(key, "", 10*time.Second, discardLogger(), testMetrics())
}

func TestSmoke_FetchDirections(t *testing.T) {
	c := smokeClient(t)

	req, err := domain.BuildRouteRequest(domain.RouteQuery{
		Origin:      domain.Place("Austin, TX"),
		Destination: domain.Place("San Antonio, TX"),
	})
	require.NoError(t, err)

	resp, err := c.FetchDirections(context.Background(), req)
	require.NoError(t, err)

	result, err := domain.AggregateRoute(resp)
	require.NoError(t, err)
	assert.InDelta(t, 128, result.DistanceKm, 30, "Austin to San Antonio is roughly 130 km")
	assert.NotEmpty(t, result.Coordinates)
	assert.NotEmpty(t, result.Waypoints)
}

func TestSmoke_InvalidKey(t *testing.T) {
	c := NewClient("invalid-key", "", 10*time.Second, discardLogger(), testMetrics())

	_, err := c.FetchDirections(context.Background(), domain.RouteRequest{
		Origin: "Austin, TX", Destination: "San Antonio, TX", Mode: domain.ModeDriving,
	})
	require.ErrorIs(t, err, domain.ErrServiceError)

	var se *domain.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "REQUEST_DENIED", se.Status)
}
