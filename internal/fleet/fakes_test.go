package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"robotfleet/internal/logging"
	"robotfleet/internal/telemetry"
)

func testContext() context.Context {
	return logging.NewContext(context.Background(), logging.Discard())
}

func robots(prefix string, n int) []telemetry.RobotRecord {
	out := make([]telemetry.RobotRecord, n)
	for i := range out {
		out[i] = telemetry.RobotRecord{
			ID:             fmt.Sprintf("%s%d", prefix, i+1),
			Coordinates:    telemetry.Coordinates{Lat: float64(i + 1), Lon: float64(i + 1)},
			Online:         true,
			BatteryPercent: 50,
		}
	}
	return out
}

// scriptFetcher returns responses in order, repeating the last one.
type scriptFetcher struct {
	mu        sync.Mutex
	responses []fetchResult
	calls     int
}

type fetchResult struct {
	records []telemetry.RobotRecord
	err     error
}

func (f *scriptFetcher) Fetch(ctx context.Context) ([]telemetry.RobotRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	f.calls++
	r := f.responses[i]
	return r.records, r.err
}

func (f *scriptFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// blockingFetcher blocks every fetch until release is closed.
type blockingFetcher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	records []telemetry.RobotRecord
}

func (f *blockingFetcher) Fetch(ctx context.Context) ([]telemetry.RobotRecord, error) {
	f.once.Do(func() { close(f.entered) })
	<-f.release
	return f.records, nil
}

// mapLocator resolves by latitude. Missing keys return an error; latitudes
// listed in block wait for ctx or the gate.
type mapLocator struct {
	names map[float64]string
	block map[float64]chan struct{}
}

var errLookup = errors.New("lookup failed")

func (m *mapLocator) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	if gate, ok := m.block[lat]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	name, ok := m.names[lat]
	if !ok {
		return "", errLookup
	}
	return name, nil
}

type collector struct {
	mu   sync.Mutex
	vms  []ViewModel
	fail bool
}

func (c *collector) Render(vm ViewModel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vms = append(c.vms, vm)
	if c.fail {
		return errors.New("render failed")
	}
	return nil
}

func (c *collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.vms)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func ids(vm ViewModel) []string {
	out := make([]string, len(vm.Robots))
	for i, r := range vm.Robots {
		out[i] = r.ID
	}
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
