package fleet

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"robotfleet/internal/logging"
	"robotfleet/internal/metrics"
	"robotfleet/internal/telemetry"
)

// Renderer consumes published view models.
type Renderer interface {
	Render(ViewModel) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ViewModel) error

func (f RendererFunc) Render(vm ViewModel) error { return f(vm) }

// Store owns the latest snapshot and location batch and publishes their
// merge to subscribed renderers.
type Store struct {
	ctx     context.Context
	mu      sync.Mutex
	snap    telemetry.Snapshot
	locs    Locations
	current atomic.Pointer[ViewModel]
	subs    map[int]Renderer
	order   []int
	nextID  int
	now     func() time.Time
}

// NewStore creates an empty store. ctx carries the logger used for renderer
// and stale-batch diagnostics.
func NewStore(ctx context.Context) *Store {
	s := &Store{ctx: ctx, subs: make(map[int]Renderer), now: time.Now}
	s.current.Store(&ViewModel{})
	return s
}

// Current returns the latest published view model.
func (s *Store) Current() ViewModel {
	return *s.current.Load()
}

// Subscribe registers r for notifications and returns a function removing it.
// Renderers are called synchronously in publish order and must not call
// Subscribe or the Publish methods from Render.
func (s *Store) Subscribe(r Renderer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = r
	s.order = append(s.order, id)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i:i], s.order[i+1:]...)
				break
			}
		}
	}
}

// PublishSnapshot replaces the current snapshot. Snapshots whose version is
// not newer than the current one are ignored.
func (s *Store) PublishSnapshot(snap telemetry.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Version != 0 && snap.Version <= s.snap.Version {
		logging.FromContext(s.ctx).Debug("ignoring out-of-order snapshot", "version", snap.Version, "current", s.snap.Version)
		return false
	}
	s.snap = snap
	s.publishLocked()
	return true
}

// PublishLocations accepts a batch only if it was resolved for the current
// snapshot. Batches from superseded snapshots are discarded.
func (s *Store) PublishLocations(locs Locations) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if locs.Version != s.snap.Version {
		metrics.StaleBatches.Inc()
		logging.FromContext(s.ctx).Debug("discarding stale location batch", "batch_version", locs.Version, "snapshot_version", s.snap.Version)
		return false
	}
	s.locs = locs
	s.publishLocked()
	return true
}

func (s *Store) publishLocked() {
	vm := merge(s.snap, s.locs, s.now().UTC())
	s.current.Store(&vm)
	metrics.SetRobots(len(vm.Robots), vm.CriticalCount(), vm.PendingCount())

	log := logging.FromContext(s.ctx)
	for _, id := range s.order {
		if err := s.subs[id].Render(vm); err != nil {
			log.Error("render failed", "version", vm.Version, "err", err)
		}
	}
}
