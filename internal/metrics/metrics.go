// Package metrics exposes Prometheus instruments for resolves and scans.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ytget/blackout/youtube/scanner"
)

const namespace = "blackout"

var (
	// Resolves counts playlist resolutions by result.
	Resolves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolves_total",
			Help:      "Playlist resolutions by result",
		},
		[]string{"result"},
	)

	// ResolveSeconds tracks playlist fetch latency.
	ResolveSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_seconds",
			Help:      "Playlist resolution time in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// Scans counts completed scans.
	Scans = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Completed page scans",
		},
	)

	// ScanSeconds tracks scan duration.
	ScanSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_seconds",
			Help:      "Page scan time in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)

	// Suppressed counts blacked out elements by category.
	Suppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suppressed_total",
			Help:      "Suppressed elements by category",
		},
		[]string{"category"},
	)

	// Retitled counts rewritten titles by category.
	Retitled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retitled_total",
			Help:      "Rewritten titles by category",
		},
		[]string{"category"},
	)

	// BlockedVideos is the current block set size.
	BlockedVideos = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blocked_videos",
			Help:      "Number of video ids in the block set",
		},
	)
)

// ObserveResolve records one resolution attempt.
func ObserveResolve(err error, took time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	Resolves.WithLabelValues(result).Inc()
	ResolveSeconds.Observe(took.Seconds())
}

// ObserveScan records one scan report.
func ObserveScan(r scanner.Report, took time.Duration) {
	Scans.Inc()
	ScanSeconds.Observe(took.Seconds())
	for _, c := range scanner.Categories() {
		counts := r.Category(c)
		if counts.Suppressed > 0 {
			Suppressed.WithLabelValues(c.String()).Add(float64(counts.Suppressed))
		}
		if counts.Retitled > 0 {
			Retitled.WithLabelValues(c.String()).Add(float64(counts.Retitled))
		}
	}
}

// SetBlockedVideos updates the block set size gauge.
func SetBlockedVideos(n int) {
	BlockedVideos.Set(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
