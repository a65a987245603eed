package fleet

import (
	"time"

	"robotfleet/internal/telemetry"
)

// PendingLocation is shown while a robot's place name is not yet resolved.
const PendingLocation = "Loading..."

// RobotView is the renderer-facing row for one robot.
type RobotView struct {
	telemetry.RobotRecord
	City     string `json:"city"`
	Resolved bool   `json:"resolved"`
	Critical bool   `json:"critical"`
}

// Label returns the resolved city or the pending placeholder.
func (r RobotView) Label() string {
	if !r.Resolved {
		return PendingLocation
	}
	return r.City
}

// Status returns "Online" or "Offline".
func (r RobotView) Status() string {
	if r.Online {
		return "Online"
	}
	return "Offline"
}

// ViewModel is the merge of the latest snapshot, its resolved locations and
// its classifications. A published ViewModel is never mutated.
type ViewModel struct {
	Version   uint64      `json:"version"`
	UpdatedAt time.Time   `json:"updated_at"`
	Robots    []RobotView `json:"robots"`
}

// CriticalCount returns the number of critical robots.
func (vm ViewModel) CriticalCount() int {
	n := 0
	for _, r := range vm.Robots {
		if r.Critical {
			n++
		}
	}
	return n
}

// PendingCount returns the number of robots still awaiting a location.
func (vm ViewModel) PendingCount() int {
	n := 0
	for _, r := range vm.Robots {
		if !r.Resolved {
			n++
		}
	}
	return n
}

// Robot looks up a robot by id.
func (vm ViewModel) Robot(id string) (RobotView, bool) {
	for _, r := range vm.Robots {
		if r.ID == id {
			return r, true
		}
	}
	return RobotView{}, false
}

// Locations is one completed batch of place names, stamped with the version
// of the snapshot it was resolved for.
type Locations struct {
	Version uint64
	Cities  map[string]string
}

func merge(snap telemetry.Snapshot, locs Locations, at time.Time) ViewModel {
	robots := make([]RobotView, len(snap.Records))
	for i, rec := range snap.Records {
		city, ok := locs.Cities[rec.ID]
		robots[i] = RobotView{
			RobotRecord: rec,
			City:        city,
			Resolved:    ok,
			Critical:    telemetry.Critical(rec),
		}
	}
	return ViewModel{Version: snap.Version, UpdatedAt: at, Robots: robots}
}
