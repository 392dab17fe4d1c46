package resolver

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/route-directions/internal/domain"
	"github.com/couchcryptid/route-directions/internal/observability"
)

// --- fakes ---

type fakeFetcher struct {
	mu    sync.Mutex
	calls []domain.RouteRequest
	resp  domain.DirectionsResponse
	err   error

	// started receives once per call when non-nil.
	started chan struct{}
	// release blocks the call until closed when non-nil.
	release chan struct{}
	// ignoreCtx keeps blocking on release even after cancellation.
	ignoreCtx bool
}

func (f *fakeFetcher) FetchDirections(ctx context.Context, req domain.RouteRequest) (domain.DirectionsResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	resp, err := f.resp, f.err
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		if f.ignoreCtx {
			<-f.release
		} else {
			select {
			case <-f.release:
			case <-ctx.Done():
				return domain.DirectionsResponse{}, &domain.TransportError{Err: ctx.Err()}
			}
		}
	}
	return resp, err
}

func (f *fakeFetcher) set(resp domain.DirectionsResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resp, f.err = resp, err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recorder struct {
	mu     sync.Mutex
	events []string
	starts []domain.StartInfo
	ready  []domain.RouteResult
	errs   []error
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnStart: func(info domain.StartInfo) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "start")
			r.starts = append(r.starts, info)
		},
		OnReady: func(res domain.RouteResult) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "ready")
			r.ready = append(r.ready, res)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, "error")
			r.errs = append(r.errs, err)
		},
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var routePoints = []domain.LatLng{
	{Latitude: 38.5, Longitude: -120.2},
	{Latitude: 40.7, Longitude: -120.95},
	{Latitude: 43.252, Longitude: -126.453},
}

func routeResponse(points []domain.LatLng) domain.DirectionsResponse {
	return domain.DirectionsResponse{
		Status: "OK",
		Routes: []domain.Route{{
			Legs: []domain.Leg{
				{
					Distance: domain.TextValue{Value: 1000},
					Duration: domain.TextValue{Value: 60},
					Steps: []domain.Step{{
						Polyline:    domain.EncodedPolyline{Points: domain.EncodePolyline(points)},
						Distance:    domain.TextValue{Text: "1 km", Value: 1000},
						EndLocation: domain.LatLngLiteral{Lat: 43.252, Lng: -126.453},
					}},
				},
				{
					Distance: domain.TextValue{Value: 2500},
					Duration: domain.TextValue{Value: 90},
				},
			},
		}},
	}
}

func newTestController(f *fakeFetcher, rec *recorder, opts ...Option) *Controller {
	if rec != nil {
		opts = append(opts, WithCallbacks(rec.callbacks()))
	}
	c := New(f, discardLogger(), observability.NewMetricsForTesting(), opts...)
	return c
}

func inputs(origin, destination string) Inputs {
	return Inputs{Origin: domain.Place(origin), Destination: domain.Place(destination)}
}

func boolPtr(b bool) *bool { return &b }

// --- tests ---

func TestResolve_Success(t *testing.T) {
	f := &fakeFetcher{resp: routeResponse(routePoints)}
	rec := &recorder{}
	c := newTestController(f, rec)
	defer c.Close()

	res, err := c.Resolve(context.Background(), inputs("A", "B"))
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "ready"}, rec.snapshot())
	assert.Equal(t, 3.5, res.DistanceKm)
	assert.Equal(t, 2.5, res.DurationMin)
	if diff := cmp.Diff(routePoints, c.Coordinates()); diff != "" {
		t.Errorf("coordinates mismatch (-want +got):\n%s", diff)
	}

	snap := c.Snapshot()
	assert.Equal(t, StatusHasRoute, snap.Status)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 3.5, snap.Result.DistanceKm)

	require.Len(t, f.calls, 1)
	assert.Equal(t, "A", f.calls[0].Origin)
	assert.Equal(t, domain.ModeDriving, f.calls[0].Mode)
	assert.Equal(t, "en", f.calls[0].Language)
}

func TestResolve_StartInfo(t *testing.T) {
	f := &fakeFetcher{resp: routeResponse(routePoints)}
	rec := &recorder{}
	c := newTestController(f, rec)
	defer c.Close()

	in := inputs("O", "D")
	in.Waypoints = []domain.Location{domain.At(1, 2), domain.Place("PlaceX")}
	in.OptimizeWaypoints = true

	_, err := c.Resolve(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, rec.starts, 1)
	assert.Equal(t, domain.StartInfo{
		Origin:      "O",
		Destination: "D",
		Waypoints:   []string{"optimize:true", "1,2", "PlaceX"},
	}, rec.starts[0])
	assert.Equal(t, "optimize:true|1,2|PlaceX", f.calls[0].WaypointParam())
}

func TestResolve_ServiceErrorResetsToIdle(t *testing.T) {
	f := &fakeFetcher{resp: routeResponse(routePoints)}
	rec := &recorder{}
	c := newTestController(f, rec)
	defer c.Close()

	_, err := c.Resolve(context.Background(), inputs("A", "B"))
	require.NoError(t, err)

	f.set(domain.DirectionsResponse{}, domain.NewServiceError("ZERO_RESULTS", ""))
	_, err = c.Resolve(context.Background(), inputs("A", "C"))
	require.ErrorIs(t, err, domain.ErrServiceError)

	assert.Equal(t, []string{"start", "ready", "start", "error"}, rec.snapshot())
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], domain.ErrServiceError)
	assert.Equal(t, StatusIdle, c.Snapshot().Status)
	assert.Nil(t, c.Snapshot().Result)
	assert.Nil(t, c.Coordinates())
}

func TestResolve_ErrorEvenWithoutReset(t *testing.T) {
	f := &fakeFetcher{resp: routeResponse(routePoints)}
	c := newTestController(f, nil)
	defer c.Close()

	_, err := c.Resolve(context.Background(), inputs("A", "B"))
	require.NoError(t, err)

	f.set(domain.DirectionsResponse{}, &domain.TransportError{Err: io.ErrUnexpectedEOF})
	in := inputs("A", "C")
	in.ResetOnChange = boolPtr(false)
	_, err = c.Resolve(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Equal(t, StatusIdle, c.Snapshot().Status)
}

func TestResolve_NoRouteFound(t *testing.T) {
	f := &fakeFetcher{resp: domain.DirectionsResponse{Status: "OK"}}
	rec := &recorder{}
	c := newTestController(f, rec)
	defer c.Close()

	_, err := c.Resolve(context.Background(), inputs("A", "B"))
	require.ErrorIs(t, err, domain.ErrNoRouteFound)
	assert.Equal(t, []string{"start", "error"}, rec.snapshot())
}

func TestResolve_MissingInputSkipped(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
	}{
		{"no origin", Inputs{Destination: domain.Place("B")}},
		{"no destination", Inputs{Origin: domain.Place("A")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{resp: routeResponse(routePoints)}
			rec := &recorder{}
			c := newTestController(f, rec)
			defer c.Close()

			_, err := c.Resolve(context.Background(), tt.in)
			require.ErrorIs(t, err, domain.ErrMissingInput)
			assert.Empty(t, rec.snapshot(), "skipped attempts notify nobody")
			assert.Zero(t, f.callCount())
			assert.Equal(t, StatusIdle, c.Snapshot().Status)
		})
	}
}

func TestResolve_ZeroComponentCoordinates(t *testing.T) {
	f := &fakeFetcher{resp: routeResponse(routePoints)}
	rec := &recorder{}
	c := newTestController(f, rec)
	defer c.Close()

	in := Inputs{
		Origin:      domain.At(0, 32.5),
		Destination: domain.At(51.4779, 0),
		Waypoints:   []domain.Location{domain.At(0, 0)},
	}
	_, err := c.Resolve(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "ready"}, rec.snapshot())
	require.Len(t, rec.starts, 1)
	assert.Equal(t, domain.StartInfo{
		Origin:      "0,32.5",
		Destination: "51.4779,0",
		Waypoints:   []string{"0,0"},
	}, rec.starts[0])
}

func TestUpdate_ChangeDetection(t *testing.T) {
	f := &fakeFetcher{resp: routeResponse(routePoints)}
	c := newTestController(f, nil)
	defer c.Close()
	ctx := context.Background()

	in := inputs("A", "B")
	_, err := c.Update(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 1, f.callCount(), "first update mounts")

	_, err = c.Update(ctx, inputs("A", "B"))
	require.ErrorIs(t, err, ErrUnchanged)

	same := inputs("A", "B")
	same.Waypoints = []domain.Location{}
	same.Language = "fr"
	same.Region = "fr"
	_, err = c.Update(ctx, same)
	require.ErrorIs(t, err, ErrUnchanged, "only origin, destination, waypoints and mode are compared")
	assert.Equal(t, 1, f.callCount())

	changes := []Inputs{
		inputs("A", "C"),
		{Origin: domain.Place("A"), Destination: domain.Place("C"), Mode: domain.ModeWalking},
		{Origin: domain.Place("A"), Destination: domain.Place("C"), Mode: domain.ModeWalking, Waypoints: []domain.Location{domain.Place("W")}},
		{Origin: domain.At(1.5, 2.5), Destination: domain.Place("C"), Mode: domain.ModeWalking, Waypoints: []domain.Location{domain.Place("W")}},
	}
	for i, next := range changes {
		_, err = c.Update(ctx, next)
		require.NoError(t, err)
		assert.Equal(t, i+2, f.callCount())
	}

	// Deep equality: a fresh pointer with equal coordinates is not a change.
	_, err = c.Update(ctx, Inputs{Origin: domain.At(1.5, 2.5), Destination: domain.Place("C"), Mode: domain.ModeWalking, Waypoints: []domain.Location{domain.Place("W")}})
	require.ErrorIs(t, err, ErrUnchanged)
}

func TestUpdate_ResetOnChange(t *testing.T) {
	tests := []struct {
		name       string
		reset      *bool
		wantStatus Status
	}{
		{"default clears the previous route", nil, StatusIdle},
		{"explicit true clears the previous route", boolPtr(true), StatusIdle},
		{"false keeps the previous route", boolPtr(false), StatusHasRoute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{resp: routeResponse(routePoints)}
			c := newTestController(f, nil)
			defer c.Close()

			_, err := c.Update(context.Background(), inputs("A", "B"))
			require.NoError(t, err)

			f.started = make(chan struct{}, 1)
			f.release = make(chan struct{})

			next := inputs("A", "C")
			next.ResetOnChange = tt.reset
			done := make(chan error, 1)
			go func() {
				_, err := c.Update(context.Background(), next)
				done <- err
			}()

			<-f.started
			snap := c.Snapshot()
			assert.Equal(t, tt.wantStatus, snap.Status)
			if tt.wantStatus == StatusHasRoute {
				assert.Equal(t, routePoints, c.Coordinates())
			} else {
				assert.Nil(t, c.Coordinates())
			}

			close(f.release)
			require.NoError(t, <-done)
			assert.Equal(t, StatusHasRoute, c.Snapshot().Status)
		})
	}
}

func TestWithResetOnChangeDefault(t *testing.T) {
	f := &fakeFetcher{resp: routeResponse(routePoints)}
	c := newTestController(f, nil, WithResetOnChange(false))
	defer c.Close()

	_, err := c.Update(context.Background(), inputs("A", "B"))
	require.NoError(t, err)

	f.started = make(chan struct{}, 1)
	f.release = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := c.Update(context.Background(), inputs("A", "C"))
		done <- err
	}()

	<-f.started
	assert.Equal(t, StatusHasRoute, c.Snapshot().Status)
	close(f.release)
	require.NoError(t, <-done)
}

func TestClose_DiscardsInFlightResult(t *testing.T) {
	f := &fakeFetcher{
		resp:      routeResponse(routePoints),
		started:   make(chan struct{}, 1),
		release:   make(chan struct{}),
		ignoreCtx: true,
	}
	rec := &recorder{}
	c := newTestController(f, rec)

	done := make(chan error, 1)
	go func() {
		_, err := c.Resolve(context.Background(), inputs("A", "B"))
		done <- err
	}()

	<-f.started
	require.NoError(t, c.Close())
	close(f.release)

	require.ErrorIs(t, <-done, ErrClosed)
	assert.Equal(t, []string{"start"}, rec.snapshot(), "no callback after close")
	assert.Equal(t, StatusIdle, c.Snapshot().Status)
}

func TestClose_KeepsRouteWhenLateResultArrives(t *testing.T) {
	f := &fakeFetcher{resp: routeResponse(routePoints)}
	rec := &recorder{}
	c := newTestController(f, rec)

	_, err := c.Resolve(context.Background(), inputs("A", "B"))
	require.NoError(t, err)

	f.set(routeResponse(routePoints[:1]), nil)
	f.started = make(chan struct{}, 1)
	f.release = make(chan struct{})
	f.ignoreCtx = true

	in := inputs("A", "C")
	in.ResetOnChange = boolPtr(false)
	done := make(chan error, 1)
	go func() {
		_, err := c.Resolve(context.Background(), in)
		done <- err
	}()

	<-f.started
	before := c.Snapshot()
	require.Equal(t, StatusHasRoute, before.Status)
	require.NoError(t, c.Close())
	close(f.release)

	require.ErrorIs(t, <-done, ErrClosed)
	if diff := cmp.Diff(before, c.Snapshot()); diff != "" {
		t.Errorf("state changed after close (-before +after):\n%s", diff)
	}
	assert.Equal(t, routePoints, c.Coordinates())
	assert.Equal(t, []string{"start", "ready", "start"}, rec.snapshot())
}

func TestClose_CancelsInFlightFetch(t *testing.T) {
	f := &fakeFetcher{
		resp:    routeResponse(routePoints),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	rec := &recorder{}
	c := newTestController(f, rec)

	done := make(chan error, 1)
	go func() {
		_, err := c.Resolve(context.Background(), inputs("A", "B"))
		done <- err
	}()

	<-f.started
	require.NoError(t, c.Close())

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("fetch was not canceled by Close")
	}
	assert.Equal(t, []string{"start"}, rec.snapshot())
}

func TestClose_LaterCallsRejected(t *testing.T) {
	f := &fakeFetcher{resp: routeResponse(routePoints)}
	rec := &recorder{}
	c := newTestController(f, rec)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "close is idempotent")

	_, err := c.Resolve(context.Background(), inputs("A", "B"))
	require.ErrorIs(t, err, ErrClosed)
	_, err = c.Update(context.Background(), inputs("A", "B"))
	require.ErrorIs(t, err, ErrClosed)

	assert.Empty(t, rec.snapshot())
	assert.Zero(t, f.callCount())
}

func TestResolve_CallerContextCanceled(t *testing.T) {
	f := &fakeFetcher{
		resp:    routeResponse(routePoints),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	rec := &recorder{}
	c := newTestController(f, rec)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Resolve(ctx, inputs("A", "B"))
		done <- err
	}()

	<-f.started
	cancel()

	err := <-done
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"start", "error"}, rec.snapshot())
}

// gatedFetcher blocks every call until the test hands it a response, so
// overlapping attempts can be completed in any order.
type gatedFetcher struct {
	mu      sync.Mutex
	gates   []chan domain.DirectionsResponse
	started chan int
}

func (g *gatedFetcher) FetchDirections(ctx context.Context, _ domain.RouteRequest) (domain.DirectionsResponse, error) {
	g.mu.Lock()
	gate := make(chan domain.DirectionsResponse, 1)
	idx := len(g.gates)
	g.gates = append(g.gates, gate)
	g.mu.Unlock()

	g.started <- idx
	select {
	case resp := <-gate:
		return resp, nil
	case <-ctx.Done():
		return domain.DirectionsResponse{}, &domain.TransportError{Err: ctx.Err()}
	}
}

func (g *gatedFetcher) complete(idx int, resp domain.DirectionsResponse) {
	g.mu.Lock()
	gate := g.gates[idx]
	g.mu.Unlock()
	gate <- resp
}

func TestResolve_OverlappingAttemptsLastCompletionWins(t *testing.T) {
	g := &gatedFetcher{started: make(chan int, 2)}
	rec := &recorder{}
	c := New(g, discardLogger(), observability.NewMetricsForTesting(), WithCallbacks(rec.callbacks()))
	defer c.Close()

	first := make(chan error, 1)
	go func() {
		_, err := c.Resolve(context.Background(), inputs("A", "B"))
		first <- err
	}()
	require.Equal(t, 0, <-g.started)

	second := make(chan error, 1)
	go func() {
		_, err := c.Resolve(context.Background(), inputs("A", "C"))
		second <- err
	}()
	require.Equal(t, 1, <-g.started)

	// The later attempt finishes first; the earlier one completes last.
	g.complete(1, routeResponse(routePoints[:1]))
	require.NoError(t, <-second)
	assert.Equal(t, routePoints[:1], c.Coordinates())

	g.complete(0, routeResponse(routePoints))
	require.NoError(t, <-first)

	snap := c.Snapshot()
	assert.Equal(t, StatusHasRoute, snap.Status)
	require.NotNil(t, snap.Result)
	assert.Equal(t, routePoints, snap.Result.Coordinates)
	assert.Equal(t, []string{"start", "start", "ready", "ready"}, rec.snapshot())
	require.Len(t, rec.ready, 2)
	assert.Len(t, rec.ready[0].Coordinates, 1)
	assert.Len(t, rec.ready[1].Coordinates, 3)
}

func TestSnapshot_IsACopy(t *testing.T) {
	f := &fakeFetcher{resp: routeResponse(routePoints)}
	c := newTestController(f, nil)
	defer c.Close()

	_, err := c.Resolve(context.Background(), inputs("A", "B"))
	require.NoError(t, err)

	snap := c.Snapshot()
	snap.Result.Coordinates[0] = domain.LatLng{}
	coords := c.Coordinates()
	coords[1] = domain.LatLng{}

	assert.Equal(t, routePoints, c.Coordinates())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "has_route", StatusHasRoute.String())
	assert.Equal(t, "unknown", Status(7).String())
}
