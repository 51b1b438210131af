// Package metrics exposes Prometheus counters and gauges for the
// supervisor domain: starts, stops, restarts, crashes, and per-id
// current state, scraped at GET /metrics alongside the JSON control
// plane.
package metrics

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	lastStateMu sync.Mutex
	lastState   = map[string]string{}

	processStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openlist_service",
			Subsystem: "process",
			Name:      "starts_total",
			Help:      "Number of successful process starts.",
		}, []string{"id"},
	)
	processRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openlist_service",
			Subsystem: "process",
			Name:      "restarts_total",
			Help:      "Number of involuntary auto-restarts.",
		}, []string{"id"},
	)
	processStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openlist_service",
			Subsystem: "process",
			Name:      "stops_total",
			Help:      "Number of explicit stop requests.",
		}, []string{"id"},
	)
	processCrashes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openlist_service",
			Subsystem: "process",
			Name:      "crashes_total",
			Help:      "Number of transitions into the Crashed state.",
		}, []string{"id"},
	)
	runningInstances = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "openlist_service",
			Subsystem: "process",
			Name:      "running_instances",
			Help:      "Current number of processes in the Running state.",
		},
	)
	currentStates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "openlist_service",
			Subsystem: "process",
			Name:      "current_state",
			Help:      "1 for a process's current state, 0 for all other states.",
		}, []string{"id", "state"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{processStarts, processRestarts, processStops, processCrashes, runningInstances, currentStates}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncStart(id string) {
	if regOK.Load() {
		processStarts.WithLabelValues(id).Inc()
	}
}

func IncRestart(id string) {
	if regOK.Load() {
		processRestarts.WithLabelValues(id).Inc()
	}
}

func IncStop(id string) {
	if regOK.Load() {
		processStops.WithLabelValues(id).Inc()
	}
}

func IncCrash(id string) {
	if regOK.Load() {
		processCrashes.WithLabelValues(id).Inc()
	}
}

// ClearState drops id's last-known-state bookkeeping and zeroes its
// current_state series, used when a process is deleted from the catalog.
func ClearState(id string) {
	lastStateMu.Lock()
	prev, had := lastState[id]
	delete(lastState, id)
	lastStateMu.Unlock()

	if had && regOK.Load() {
		currentStates.WithLabelValues(id, prev).Set(0)
	}
}

func SetRunningInstances(n int) {
	if regOK.Load() {
		runningInstances.Set(float64(n))
	}
}

// SetCurrentState marks id as currently in state, zeroing the gauge for
// whatever state id was previously reported in so a stale label doesn't
// stay pinned at 1 after a transition.
func SetCurrentState(id, state string) {
	lastStateMu.Lock()
	prev, had := lastState[id]
	lastState[id] = state
	lastStateMu.Unlock()

	if !regOK.Load() {
		return
	}
	if had && prev != state {
		currentStates.WithLabelValues(id, prev).Set(0)
	}
	currentStates.WithLabelValues(id, state).Set(1)
}
