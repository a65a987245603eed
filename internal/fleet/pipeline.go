package fleet

import (
	"context"
	"sync"
	"time"

	"robotfleet/internal/logging"
	"robotfleet/internal/telemetry"
)

// Pipeline wires the poller, resolver and store together.
type Pipeline struct {
	Store    *Store
	poller   *Poller
	resolver *Resolver
	ctx      context.Context
	batches  sync.WaitGroup
}

// Options configures a Pipeline.
type Options struct {
	PollInterval time.Duration
	MaxRobots    int
}

// NewPipeline builds a pipeline. ctx scopes logging and location batches.
func NewPipeline(ctx context.Context, fetcher Fetcher, resolver *Resolver, opts Options) *Pipeline {
	p := &Pipeline{
		Store:    NewStore(ctx),
		resolver: resolver,
		ctx:      ctx,
	}
	p.poller = NewPoller(fetcher, p.onSnapshot, opts.PollInterval, opts.MaxRobots)
	return p
}

// onSnapshot publishes snap and then starts its location batch.
func (p *Pipeline) onSnapshot(snap telemetry.Snapshot) {
	if !p.Store.PublishSnapshot(snap) {
		return
	}
	p.batches.Add(1)
	go func() {
		defer p.batches.Done()
		// Shutdown lets lookups in flight finish; each is still bounded by
		// the resolver's lookup timeout.
		locs := p.resolver.Resolve(context.WithoutCancel(p.ctx), snap)
		if !p.Store.PublishLocations(locs) {
			logging.FromContext(p.ctx).Info("location batch superseded", "version", locs.Version)
		}
	}()
}

// Start begins polling.
func (p *Pipeline) Start() {
	p.poller.Start(p.ctx)
}

// Stop cancels future polls. In-flight fetches and batches run to completion.
func (p *Pipeline) Stop() {
	p.poller.Stop()
}

// Run polls until ctx is done.
func (p *Pipeline) Run(ctx context.Context) {
	p.Start()
	select {
	case <-ctx.Done():
	case <-p.poller.Done():
	}
	p.Stop()
}

// Wait blocks until the poll loop has exited and every outstanding location
// batch has been merged or discarded.
func (p *Pipeline) Wait() {
	<-p.poller.Done()
	p.batches.Wait()
}
