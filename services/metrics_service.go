package services

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"furnace/internal/models"
)

var (
	reconcileCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "furnace_reconcile_total",
			Help: "Total reconcile operations",
		},
		[]string{"operation", "result"},
	)

	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "furnace_reconcile_duration_seconds",
			Help:    "Duration of reconcile operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	recipeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "furnace_recipes",
		Help: "Number of cooked recipes",
	})

	backendUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "furnace_backend_up",
			Help: "Whether a web server backend is running",
		},
		[]string{"kind"},
	)

	runtimeUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "furnace_runtime_up",
			Help: "Whether the php-fpm socket of a version accepts connections",
		},
		[]string{"version"},
	)

	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "furnace_api_request_total",
			Help: "Total API requests",
		},
		[]string{"route"},
	)

	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "furnace_api_request_errors_total",
			Help: "Total API requests answered with a status >= 400",
		},
		[]string{"route"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "furnace_api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(reconcileCount)
	prometheus.MustRegister(reconcileDuration)
	prometheus.MustRegister(recipeGauge)
	prometheus.MustRegister(backendUp)
	prometheus.MustRegister(runtimeUp)
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestErrors)
	prometheus.MustRegister(requestDuration)
}

// ObserveReconcile records the outcome of one reconcile operation.
func ObserveReconcile(operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	reconcileCount.WithLabelValues(operation, result).Inc()
	reconcileDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordStatus refreshes the state gauges from a status snapshot.
func RecordStatus(st *models.SystemStatus) {
	recipeGauge.Set(float64(len(st.Recipes)))
	for _, b := range st.Backends {
		backendUp.WithLabelValues(string(b.Kind)).Set(boolGauge(b.Status == models.StatusRunning))
	}
	for _, rt := range st.Runtimes {
		runtimeUp.WithLabelValues(rt.Version).Set(boolGauge(rt.State == models.RuntimeRunning))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func IncrementRequestCount(route string) {
	requestCount.WithLabelValues(route).Inc()
}

func IncrementErrorCount(route string) {
	requestErrors.WithLabelValues(route).Inc()
}

func RecordRequestDuration(route string, seconds float64) {
	requestDuration.WithLabelValues(route).Observe(seconds)
}

/**
 * Dump all registered metrics in the node_exporter textfile format
 * @param {string} dir - Output directory, usually ~/.furnace/metrics
 * @returns {error} Returns error if the file cannot be written
 */
func DumpMetrics(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.IOError("mkdir", dir, err)
	}
	return prometheus.WriteToTextfile(filepath.Join(dir, "furnace.prom"), prometheus.DefaultGatherer)
}
