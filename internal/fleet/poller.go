package fleet

import (
	"context"
	"sync"
	"time"

	"robotfleet/internal/logging"
	"robotfleet/internal/metrics"
	"robotfleet/internal/telemetry"
)

// DefaultPollInterval is the time between telemetry fetches.
const DefaultPollInterval = 5 * time.Second

// Fetcher retrieves the current fleet from the telemetry source.
type Fetcher interface {
	Fetch(ctx context.Context) ([]telemetry.RobotRecord, error)
}

// Poller fetches a snapshot immediately and then on every interval until
// stopped. Each published snapshot carries a strictly increasing version.
type Poller struct {
	fetcher  Fetcher
	publish  func(telemetry.Snapshot)
	interval time.Duration
	maxSize  int
	now      func() time.Time

	mu      sync.Mutex
	version uint64
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// NewPoller creates a poller publishing snapshots of at most maxSize records.
func NewPoller(fetcher Fetcher, publish func(telemetry.Snapshot), interval time.Duration, maxSize int) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxSize <= 0 || maxSize > telemetry.MaxSnapshotSize {
		maxSize = telemetry.MaxSnapshotSize
	}
	return &Poller{
		fetcher:  fetcher,
		publish:  publish,
		interval: interval,
		maxSize:  maxSize,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop. Calling Start more than once, or after
// Stop, has no effect. ctx is used for fetches and logging; cancelling it
// ends the loop like Stop does.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	go p.run(ctx)
}

// Stop cancels future ticks. A fetch already in flight is not cancelled,
// but its result is never published once Stop has returned.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.stop)
	if !p.started {
		close(p.done)
	}
}

// Done is closed when the polling loop has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	log := logging.FromContext(ctx)
	log.Info("starting telemetry poller", "interval", p.interval, "max_robots", p.maxSize)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ticker.C:
			p.tick(ctx)
		case <-p.stop:
			log.Info("stopping telemetry poller")
			return
		case <-ctx.Done():
			log.Info("stopping telemetry poller", "reason", ctx.Err())
			return
		}
	}
}

// tick performs one fetch. Failures are logged and the tick is skipped.
func (p *Poller) tick(ctx context.Context) {
	log := logging.FromContext(ctx)
	if p.isStopped() {
		return
	}

	start := p.now()
	// Stop must not abort a fetch in flight.
	records, err := p.fetcher.Fetch(context.WithoutCancel(ctx))
	metrics.ObservePoll(err == nil, p.now().Sub(start))
	if err != nil {
		log.Error("telemetry fetch failed", "err", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		log.Debug("dropping snapshot fetched after stop", "robots", len(records))
		return
	}
	if ctx.Err() != nil {
		return
	}
	p.version++
	snap := telemetry.NewSnapshot(p.version, records, p.maxSize, p.now().UTC())
	if len(records) > snap.Len() {
		log.Debug("truncated snapshot", "received", len(records), "kept", snap.Len())
	}
	p.publish(snap)
}

func (p *Poller) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}
