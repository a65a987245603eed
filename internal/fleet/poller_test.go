package fleet

import (
	"errors"
	"sync"
	"testing"
	"time"

	"robotfleet/internal/telemetry"
)

type snapSink struct {
	mu    sync.Mutex
	snaps []telemetry.Snapshot
}

func (s *snapSink) publish(snap telemetry.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
}

func (s *snapSink) all() []telemetry.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]telemetry.Snapshot, len(s.snaps))
	copy(out, s.snaps)
	return out
}

func TestPollerPublishesImmediatelyAndTruncates(t *testing.T) {
	src := robots("R", 35)
	f := &scriptFetcher{responses: []fetchResult{{records: src}}}
	sink := &snapSink{}
	p := NewPoller(f, sink.publish, time.Hour, telemetry.MaxSnapshotSize)
	p.Start(testContext())
	defer p.Stop()

	waitFor(t, "first snapshot", func() bool { return len(sink.all()) == 1 })
	snap := sink.all()[0]
	if snap.Version != 1 {
		t.Errorf("version = %d, want 1", snap.Version)
	}
	if snap.Len() != 30 {
		t.Fatalf("len = %d, want 30", snap.Len())
	}
	for i, r := range snap.Records {
		if r.ID != src[i].ID {
			t.Fatalf("record %d = %s, want %s", i, r.ID, src[i].ID)
		}
	}
}

func TestPollerSkipsFailedTicks(t *testing.T) {
	f := &scriptFetcher{responses: []fetchResult{
		{err: errors.New("connection refused")},
		{records: robots("R", 2)},
		{err: errors.New("malformed")},
		{records: robots("S", 1)},
	}}
	sink := &snapSink{}
	p := NewPoller(f, sink.publish, 5*time.Millisecond, 0)
	p.Start(testContext())

	waitFor(t, "polling to continue after failures", func() bool { return f.Calls() >= 5 })
	p.Stop()
	<-p.Done()

	snaps := sink.all()
	if len(snaps) < 2 {
		t.Fatalf("expected at least 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Records[0].ID != "R1" || snaps[0].Version != 1 {
		t.Errorf("first snapshot = %+v", snaps[0])
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i].Version <= snaps[i-1].Version {
			t.Fatalf("versions not increasing: %d then %d", snaps[i-1].Version, snaps[i].Version)
		}
	}
}

func TestPollerStopMidFetchPublishesNothing(t *testing.T) {
	f := &blockingFetcher{entered: make(chan struct{}), release: make(chan struct{}), records: robots("R", 3)}
	sink := &snapSink{}
	p := NewPoller(f, sink.publish, time.Hour, 0)
	p.Start(testContext())

	<-f.entered
	p.Stop()
	close(f.release)

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("poller did not exit")
	}
	if n := len(sink.all()); n != 0 {
		t.Fatalf("published %d snapshots after stop", n)
	}
}

func TestPollerStopBeforeStart(t *testing.T) {
	sink := &snapSink{}
	p := NewPoller(&scriptFetcher{responses: []fetchResult{{records: robots("R", 1)}}}, sink.publish, time.Millisecond, 0)
	p.Stop()
	p.Start(testContext())
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatalf("Done not closed")
	}
	time.Sleep(10 * time.Millisecond)
	if len(sink.all()) != 0 {
		t.Fatalf("stopped poller published")
	}
	p.Stop()
}

func TestPollerDefaults(t *testing.T) {
	p := NewPoller(nil, nil, 0, 99)
	if p.interval != DefaultPollInterval {
		t.Errorf("interval = %v", p.interval)
	}
	if p.maxSize != telemetry.MaxSnapshotSize {
		t.Errorf("maxSize = %d", p.maxSize)
	}
}
