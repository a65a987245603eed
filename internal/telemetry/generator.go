package telemetry

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LastUpdatedLayout is the timestamp format used in generated records.
const LastUpdatedLayout = "2006-01-02 15:04:05"

// Generator simulates telemetry for a fleet of robots.
type Generator struct {
	mu   sync.Mutex
	rand *rand.Rand
	now  func() time.Time
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rand: rand.New(rand.NewSource(seed)), now: time.Now}
}

// Generate returns n robots with random positions and resource usage.
func (g *Generator) Generate(n int) []RobotRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	ts := g.now().UTC().Format(LastUpdatedLayout)
	fleet := make([]RobotRecord, 0, n)
	for i := 0; i < n; i++ {
		fleet = append(fleet, RobotRecord{
			ID: uuid.New().String(),
			Coordinates: Coordinates{
				Lat: g.rand.Float64()*180 - 90,
				Lon: g.rand.Float64()*360 - 180,
			},
			Online:         g.rand.Float64() < 0.8,
			BatteryPercent: g.rand.Intn(101),
			CPUPercent:     float64(g.rand.Intn(10000)) / 100,
			RAMMegabytes:   float64(256 + g.rand.Intn(7937)),
			LastUpdated:    ts,
		})
	}
	return fleet
}

// Step drains one percent of battery from every online robot and refreshes
// its timestamp. Battery never drops below zero.
func (g *Generator) Step(fleet []RobotRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ts := g.now().UTC().Format(LastUpdatedLayout)
	for i := range fleet {
		if !fleet[i].Online {
			continue
		}
		if fleet[i].BatteryPercent > 0 {
			fleet[i].BatteryPercent--
		}
		fleet[i].LastUpdated = ts
	}
}
