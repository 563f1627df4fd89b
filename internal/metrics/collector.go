// Package metrics exposes the belt monitor's observability surface:
// a Prometheus collector sampling belt.Stats on an interval, served
// over HTTP for scraping.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChuLiYu/warehouse-ipc/internal/belt"
)

// Collector holds the belt monitor's gauges. Unlike a counter fed by
// local events, every value here is a snapshot of externally-owned
// shared state, so all of them are gauges, set wholesale on each poll.
type Collector struct {
	count            prometheus.Gauge
	capacity         prometheus.Gauge
	totalWeightKg    prometheus.Gauge
	workerPopulation prometheus.Gauge
	packagesCreated  prometheus.Gauge
}

// NewCollector builds and registers the belt monitor's gauges against
// the default registry.
func NewCollector() *Collector {
	c := &Collector{
		count: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warehouse_belt_count",
			Help: "Current number of packages occupying the belt.",
		}),
		capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warehouse_belt_capacity",
			Help: "Configured belt slot capacity.",
		}),
		totalWeightKg: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warehouse_belt_total_weight_kg",
			Help: "Sum of the weight of every package currently on the belt.",
		}),
		workerPopulation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warehouse_belt_worker_population",
			Help: "Number of worker processes currently registered against the belt.",
		}),
		packagesCreated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warehouse_belt_packages_created_total",
			Help: "Monotonic count of packages ever assigned a belt id.",
		}),
	}

	prometheus.MustRegister(c.count)
	prometheus.MustRegister(c.capacity)
	prometheus.MustRegister(c.totalWeightKg)
	prometheus.MustRegister(c.workerPopulation)
	prometheus.MustRegister(c.packagesCreated)

	return c
}

// Observe records one snapshot of the belt's state.
func (c *Collector) Observe(stats belt.Stats, capacity int) {
	c.count.Set(float64(stats.Count))
	c.capacity.Set(float64(capacity))
	c.totalWeightKg.Set(stats.TotalWeightKg)
	c.workerPopulation.Set(float64(stats.WorkerPopulation))
	c.packagesCreated.Set(float64(stats.TotalPackagesCreated))
}

// StartServer starts the Prometheus scrape endpoint on port, blocking
// until the server stops or fails.
func StartServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, mux)
}
