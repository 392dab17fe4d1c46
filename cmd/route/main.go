// Command route resolves a route from the command line and prints it as JSON.
//
// Usage:
//
//	go run ./cmd/route \
//	  -origin "40.7128,-74.006" \
//	  -destination "Boston, MA" \
//	  -waypoint "Hartford, CT" -mode driving
//
// With -follow, newline-delimited JSON inputs are read from stdin and a route
// is printed each time origin, destination, waypoints or mode change:
//
//	{"origin":"Austin, TX","destination":{"latitude":29.42,"longitude":-98.49}}
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/route-directions/internal/adapter/googlemaps"
	"github.com/couchcryptid/route-directions/internal/config"
	"github.com/couchcryptid/route-directions/internal/domain"
	"github.com/couchcryptid/route-directions/internal/observability"
	"github.com/couchcryptid/route-directions/internal/resolver"
)

type options struct {
	origin      string
	destination string
	waypoints   []string
	mode        string
	language    string
	region      string
	optimize    bool
	apiKey      string
	baseURL     string
	timeout     time.Duration
	follow      bool
	keepRoute   bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "route:", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.origin, "origin", "", "origin as \"lat,lng\" or a place")
	flag.StringVar(&opts.destination, "destination", "", "destination as \"lat,lng\" or a place")
	flag.Func("waypoint", "intermediate stop (repeatable)", func(s string) error {
		opts.waypoints = append(opts.waypoints, s)
		return nil
	})
	flag.StringVar(&opts.mode, "mode", sharedcfg.EnvOrDefault("DIRECTIONS_MODE", "driving"), "travel mode: driving, bicycling, transit, walking")
	flag.StringVar(&opts.language, "language", sharedcfg.EnvOrDefault("DIRECTIONS_LANGUAGE", domain.DefaultLanguage), "result language")
	flag.StringVar(&opts.region, "region", os.Getenv("DIRECTIONS_REGION"), "region bias")
	flag.BoolVar(&opts.optimize, "optimize", false, "let the service reorder waypoints")
	flag.StringVar(&opts.apiKey, "key", os.Getenv("DIRECTIONS_API_KEY"), "directions API key")
	flag.StringVar(&opts.baseURL, "base-url", sharedcfg.EnvOrDefault("DIRECTIONS_BASE_URL", domain.DefaultBaseURL), "directions endpoint")
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "HTTP timeout")
	flag.BoolVar(&opts.follow, "follow", false, "read JSON inputs from stdin and re-resolve on change")
	flag.BoolVar(&opts.keepRoute, "keep", false, "in -follow mode, keep the previous route while a new one is fetched")
	flag.Parse()

	if opts.apiKey == "" {
		return errors.New("-key or DIRECTIONS_API_KEY is required")
	}
	mode, err := domain.ParseMode(opts.mode)
	if err != nil {
		return err
	}
	reset, err := resetDefault(opts.keepRoute)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: observability.ParseLevel(os.Getenv("LOG_LEVEL")),
	}))
	metrics := observability.NewMetrics()
	client := googlemaps.NewClient(opts.apiKey, opts.baseURL, opts.timeout, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := json.NewEncoder(os.Stdout)
	ctrl := resolver.New(client, logger, metrics,
		resolver.WithResetOnChange(reset),
		resolver.WithCallbacks(resolver.Callbacks{
			OnStart: func(info domain.StartInfo) {
				logger.Debug("fetching route", "origin", info.Origin, "destination", info.Destination, "waypoints", info.Waypoints)
			},
		}),
	)
	defer ctrl.Close()

	if opts.follow {
		return follow(ctx, ctrl, os.Stdin, out, logger)
	}

	in := resolver.Inputs{
		Origin:            domain.ParseLocation(opts.origin),
		Destination:       domain.ParseLocation(opts.destination),
		Mode:              mode,
		Language:          opts.language,
		Region:            opts.region,
		OptimizeWaypoints: opts.optimize,
	}
	for _, w := range opts.waypoints {
		in.Waypoints = append(in.Waypoints, domain.ParseLocation(w))
	}

	result, err := ctrl.Resolve(ctx, in)
	if err != nil {
		return describe(err)
	}
	return out.Encode(result)
}

// resetDefault honors RESET_ON_CHANGE unless -keep is given.
func resetDefault(keep bool) (bool, error) {
	if keep {
		return false, nil
	}
	return config.ResetOnChange()
}

type followError struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
}

func follow(ctx context.Context, ctrl *resolver.Controller, r io.Reader, out *json.Encoder, logger *slog.Logger) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var in resolver.Inputs
		if err := json.Unmarshal(line, &in); err != nil {
			logger.Warn("skipping malformed input", "error", err)
			continue
		}

		result, err := ctrl.Update(ctx, in)
		switch {
		case err == nil:
			if err := out.Encode(result); err != nil {
				return err
			}
		case errors.Is(err, resolver.ErrUnchanged):
			logger.Debug("inputs unchanged")
		case errors.Is(err, domain.ErrMissingInput):
			logger.Info("origin or destination missing, waiting for more input")
		case errors.Is(err, resolver.ErrClosed):
			return nil
		default:
			fe := followError{Error: err.Error()}
			var se *domain.ServiceError
			if errors.As(err, &se) {
				fe.Error, fe.Status = se.Message, se.Status
			}
			if err := out.Encode(fe); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func describe(err error) error {
	var se *domain.ServiceError
	if errors.As(err, &se) {
		return fmt.Errorf("directions service returned %s: %s", se.Status, se.Message)
	}
	return err
}
