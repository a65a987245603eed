package fleet

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"robotfleet/internal/geocode"
	"robotfleet/internal/logging"
	"robotfleet/internal/metrics"
	"robotfleet/internal/telemetry"
)

const (
	// DefaultLookupConcurrency bounds the lookups in flight per batch.
	DefaultLookupConcurrency = 8
	// DefaultLookupTimeout bounds a single lookup.
	DefaultLookupTimeout = 10 * time.Second
)

// Resolver resolves a place name for every record of a snapshot.
type Resolver struct {
	locator     geocode.Locator
	concurrency int
	timeout     time.Duration
}

// NewResolver creates a resolver issuing at most concurrency lookups at once,
// each bounded by timeout.
func NewResolver(locator geocode.Locator, concurrency int, timeout time.Duration) *Resolver {
	if concurrency <= 0 {
		concurrency = DefaultLookupConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Resolver{locator: locator, concurrency: concurrency, timeout: timeout}
}

// Resolve looks up every record and returns once the whole batch has
// finished. The result covers exactly the snapshot's ids; a failed lookup
// resolves to geocode.UnknownLocation without affecting other records.
func (r *Resolver) Resolve(ctx context.Context, snap telemetry.Snapshot) Locations {
	log := logging.FromContext(ctx)
	names := make([]string, len(snap.Records))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, rec := range snap.Records {
		i, rec := i, rec
		g.Go(func() error {
			names[i] = r.lookup(ctx, rec)
			return nil
		})
	}
	g.Wait()

	cities := make(map[string]string, len(names))
	for i, rec := range snap.Records {
		cities[rec.ID] = names[i]
	}
	log.Debug("resolved location batch", "version", snap.Version, "robots", len(cities))
	return Locations{Version: snap.Version, Cities: cities}
}

func (r *Resolver) lookup(ctx context.Context, rec telemetry.RobotRecord) string {
	lctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	name, err := r.locator.Reverse(lctx, rec.Coordinates.Lat, rec.Coordinates.Lon)
	metrics.ObserveLookup(err == nil)
	if err != nil {
		logging.FromContext(ctx).Warn("location lookup failed",
			"robot_id", rec.ID, "lat", rec.Coordinates.Lat, "lon", rec.Coordinates.Lon, "err", err)
		return geocode.UnknownLocation
	}
	if name == "" {
		return geocode.UnknownLocation
	}
	return name
}
