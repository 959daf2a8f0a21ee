// Package metrics exposes the Prometheus instrumentation of the live loop.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the collectors updated by the broadcaster and the writer.
// Callers treat a nil *Metrics as "metrics disabled".
type Metrics struct {
	TicksTotal         prometheus.Counter
	PersistErrors      prometheus.Counter
	DroppedWrites      prometheus.Counter
	DroppedSnapshots   prometheus.Counter
	ConnectedObservers prometheus.Gauge
}

// Register creates and registers all collectors on the default registry.
func Register() *Metrics {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energyflow_ticks_total",
			Help: "Total number of completed simulation ticks",
		}),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energyflow_persist_errors_total",
			Help: "Total number of failed durable writes",
		}),
		DroppedWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energyflow_dropped_writes_total",
			Help: "Total number of records dropped because the write queue was full",
		}),
		DroppedSnapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "energyflow_dropped_snapshots_total",
			Help: "Total number of snapshots dropped on slow observer queues",
		}),
		ConnectedObservers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "energyflow_connected_observers",
			Help: "Number of currently connected stream observers",
		}),
	}

	prometheus.MustRegister(
		m.TicksTotal,
		m.PersistErrors,
		m.DroppedWrites,
		m.DroppedSnapshots,
		m.ConnectedObservers,
	)

	return m
}
