package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"robotfleet/internal/logging"
	"robotfleet/internal/telemetry"
)

// Server is a stand-in telemetry endpoint. It serves a fixed fleet on
// GET /robots and drains the battery of online robots on every step.
type Server struct {
	gen   *telemetry.Generator
	mu    sync.RWMutex
	fleet []telemetry.RobotRecord
}

// NewServer creates a server for fleet, keeping at most MaxSnapshotSize robots.
func NewServer(gen *telemetry.Generator, fleet []telemetry.RobotRecord) *Server {
	n := len(fleet)
	if n > telemetry.MaxSnapshotSize {
		n = telemetry.MaxSnapshotSize
	}
	owned := make([]telemetry.RobotRecord, n)
	copy(owned, fleet[:n])
	return &Server{gen: gen, fleet: owned}
}

// LoadFleet reads a JSON array of robot records from path.
func LoadFleet(path string) ([]telemetry.RobotRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fleet []telemetry.RobotRecord
	if err := json.Unmarshal(data, &fleet); err != nil {
		return nil, fmt.Errorf("parse fleet %s: %w", path, err)
	}
	return fleet, nil
}

// Fleet returns a copy of the served fleet.
func (s *Server) Fleet() []telemetry.RobotRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]telemetry.RobotRecord, len(s.fleet))
	copy(out, s.fleet)
	return out
}

// Step advances the simulated fleet by one drain cycle.
func (s *Server) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen.Step(s.fleet)
}

// Handler returns the HTTP handler serving the fleet.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots", s.handleRobots)
	return mux
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(s.Fleet())
}

// Run serves on addr and drains batteries every interval until ctx is done.
func (s *Server) Run(ctx context.Context, addr string, interval time.Duration) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Step()
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("telemetry source listening", "addr", addr, "robots", len(s.Fleet()), "drain_interval", interval)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
