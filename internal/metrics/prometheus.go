package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Polls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "robotfleet_polls_total",
			Help: "Telemetry polls by result",
		},
		[]string{"result"},
	)

	PollDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "robotfleet_poll_duration_seconds",
			Help:    "Telemetry fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	GeocodeLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "robotfleet_geocode_lookups_total",
			Help: "Reverse geocoding lookups by result",
		},
		[]string{"result"},
	)

	StaleBatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "robotfleet_stale_batches_total",
			Help: "Location batches discarded because a newer snapshot was published",
		},
	)

	Robots = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "robotfleet_robots",
			Help: "Robots in the current view model by state",
		},
		[]string{"state"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "robotfleet_http_requests_total",
			Help: "Admin HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{Polls, PollDuration, GeocodeLookups, StaleBatches, Robots, HTTPRequests} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObservePoll records the outcome of one telemetry fetch.
func ObservePoll(ok bool, d time.Duration) {
	PollDuration.Observe(d.Seconds())
	if ok {
		Polls.WithLabelValues("ok").Inc()
		return
	}
	Polls.WithLabelValues("error").Inc()
}

// ObserveLookup records the outcome of one reverse geocoding call.
func ObserveLookup(ok bool) {
	if ok {
		GeocodeLookups.WithLabelValues("ok").Inc()
		return
	}
	GeocodeLookups.WithLabelValues("error").Inc()
}

// SetRobots publishes the fleet gauges.
func SetRobots(total, critical, pending int) {
	Robots.WithLabelValues("total").Set(float64(total))
	Robots.WithLabelValues("critical").Set(float64(critical))
	Robots.WithLabelValues("pending").Set(float64(pending))
}

// Middleware counts requests per route name.
func Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{w, http.StatusOK}
		next.ServeHTTP(rw, r)
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
