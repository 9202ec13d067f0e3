// Package metrics declares the Prometheus collectors of the allocator.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/eugenenazirov/node-allocator/internal/allocator"
)

// Label values for allocator metrics.
const (
	Ok         = "ok"
	Fail       = "fail"
	NoNodes    = "no_nodes"
	Assigned   = "assigned"
	Unassigned = "unassigned"
)

// Collectors for allocation runs.
var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocator_runs_total",
		Help: "Cumulative number of allocation runs, by outcome.",
	}, []string{"outcome"})
	ItemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocator_items_total",
		Help: "Cumulative number of files allocated, by result.",
	}, []string{"result"})
	RunDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "allocator_run_duration_seconds",
		Help:    "Duration of allocation runs.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})
)

// Register registers all allocator collectors with reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{RunsTotal, ItemsTotal, RunDurationSeconds} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records the outcome of one allocation run.
func ObserveRun(res *allocator.Result, err error, elapsed time.Duration) {
	RunDurationSeconds.Observe(elapsed.Seconds())

	switch {
	case errors.Is(err, allocator.ErrNoContainers):
		RunsTotal.WithLabelValues(NoNodes).Inc()
		return
	case err != nil:
		RunsTotal.WithLabelValues(Fail).Inc()
		return
	}

	RunsTotal.WithLabelValues(Ok).Inc()
	assigned := res.AssignedCount()
	ItemsTotal.WithLabelValues(Assigned).Add(float64(assigned))
	ItemsTotal.WithLabelValues(Unassigned).Add(float64(res.Len() - assigned))
}
