// Package metrics holds the Prometheus collectors for model loading,
// generation, model resolution and host resources.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lmrun"

var (
	loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "load_duration_seconds",
			Help:      "Duration of model loads in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"result"},
	)

	generateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "generate_duration_seconds",
			Help:      "Duration of generate calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"finish_reason"},
	)

	tokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "tokens_total",
			Help:      "Tokens processed, by kind (prompt or completion)",
		},
		[]string{"kind"},
	)

	locatorLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locator",
			Name:      "lookups_total",
			Help:      "Model path lookups by outcome (hit, miss, stale, not_found)",
		},
		[]string{"outcome"},
	)

	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locator",
			Name:      "fetch_total",
			Help:      "Registry pulls by result",
		},
		[]string{"result"},
	)

	hostMemoryUsed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "host",
		Name:      "memory_used_bytes",
		Help:      "Host memory in use (MemTotal - MemAvailable)",
	})

	vramUsed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "gpu",
		Name:      "memory_used_bytes",
		Help:      "GPU memory in use summed across devices",
	})

	activeGPUs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "gpu",
		Name:      "active",
		Help:      "Number of GPUs reported by the device probe",
	})

	tokensPerSecond = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "tokens_per_second",
		Help:      "Completion throughput of the most recent generate call",
	})
)

func init() {
	prometheus.MustRegister(
		loadDuration, generateDuration, tokensTotal,
		locatorLookups, fetchTotal,
		hostMemoryUsed, vramUsed, activeGPUs, tokensPerSecond,
	)
}

// ObserveLoad records a model load attempt.
func ObserveLoad(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	loadDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveGeneration records one generate call.
func ObserveGeneration(finishReason string, promptTokens, completionTokens int, d time.Duration) {
	generateDuration.WithLabelValues(finishReason).Observe(d.Seconds())
	tokensTotal.WithLabelValues("prompt").Add(float64(promptTokens))
	tokensTotal.WithLabelValues("completion").Add(float64(completionTokens))
	if s := d.Seconds(); s > 0 {
		tokensPerSecond.Set(float64(completionTokens) / s)
	}
}

func LocatorLookup(outcome string) { locatorLookups.WithLabelValues(outcome).Inc() }

func Fetch(err error) {
	if err != nil {
		fetchTotal.WithLabelValues("error").Inc()
		return
	}
	fetchTotal.WithLabelValues("ok").Inc()
}

// SetResources publishes the latest resource snapshot.
func SetResources(hostUsedMB, vramUsedMB uint64, gpus int) {
	hostMemoryUsed.Set(float64(hostUsedMB) * 1024 * 1024)
	vramUsed.Set(float64(vramUsedMB) * 1024 * 1024)
	activeGPUs.Set(float64(gpus))
}
