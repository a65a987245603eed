// Robot telemetry records as served by the fleet telemetry endpoint
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Coordinates is a latitude/longitude pair. On the wire it is a two-element
// [lat, lon] array.
type Coordinates struct {
	Lat float64
	Lon float64
}

// MarshalJSON encodes the pair as [lat, lon].
func (c Coordinates) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lon})
}

// UnmarshalJSON decodes a [lat, lon] array and rejects any other arity.
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("coordinates: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinates: expected [lat, lon], got %d values", len(pair))
	}
	c.Lat, c.Lon = pair[0], pair[1]
	return nil
}

// Valid reports whether the pair lies within geographic bounds.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// RobotRecord represents one telemetry observation for a single robot.
type RobotRecord struct {
	ID             string      `json:"Robot ID"`
	Coordinates    Coordinates `json:"Location Coordinates"`
	Online         bool        `json:"Online/Offline"`
	BatteryPercent int         `json:"Battery Percentage"`
	CPUPercent     float64     `json:"CPU Usage"`
	RAMMegabytes   float64     `json:"RAM Consumption"`
	LastUpdated    string      `json:"Last Updated"`
}

// Validate checks the ranges a well-formed record must respect.
func (r RobotRecord) Validate() error {
	var errs []error
	if r.ID == "" {
		errs = append(errs, errors.New("empty robot id"))
	}
	if !r.Coordinates.Valid() {
		errs = append(errs, fmt.Errorf("coordinates out of range: (%.5f, %.5f)", r.Coordinates.Lat, r.Coordinates.Lon))
	}
	if r.BatteryPercent < 0 || r.BatteryPercent > 100 {
		errs = append(errs, fmt.Errorf("battery out of range: %d", r.BatteryPercent))
	}
	return errors.Join(errs...)
}

// MaxSnapshotSize caps the number of records a snapshot holds.
const MaxSnapshotSize = 30

// Snapshot is the bounded, ordered set of records retrieved by one poll.
// Version increases strictly with every published snapshot.
type Snapshot struct {
	Version   uint64        `json:"version"`
	Records   []RobotRecord `json:"records"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// NewSnapshot copies at most limit records, in source order, into a new
// snapshot. A non-positive limit or one above MaxSnapshotSize is clamped to
// MaxSnapshotSize.
func NewSnapshot(version uint64, records []RobotRecord, limit int, at time.Time) Snapshot {
	if limit <= 0 || limit > MaxSnapshotSize {
		limit = MaxSnapshotSize
	}
	n := len(records)
	if n > limit {
		n = limit
	}
	out := make([]RobotRecord, n)
	copy(out, records[:n])
	return Snapshot{Version: version, Records: out, FetchedAt: at}
}

// IDs returns the record ids in snapshot order.
func (s Snapshot) IDs() []string {
	ids := make([]string, len(s.Records))
	for i, r := range s.Records {
		ids[i] = r.ID
	}
	return ids
}

// Len returns the number of records.
func (s Snapshot) Len() int { return len(s.Records) }
