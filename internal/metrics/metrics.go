// Package metrics exposes compatlens counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abramin/compatlens/internal/catalog"
	"github.com/abramin/compatlens/internal/entity"
)

const namespace = "compatlens"

// Recorder owns a private registry and the compatlens collectors. It satisfies
// resolve.Observer.
type Recorder struct {
	registry *prometheus.Registry

	lookups        *prometheus.CounterVec
	closureMatches prometheus.Counter
	indexEntries   *prometheus.GaugeVec
	buildSeconds   prometheus.Histogram
	findings       prometheus.Counter
}

// New creates a Recorder with Go runtime and process collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Index lookups by kind and result.",
		}, []string{"kind", "result"}),
		closureMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "closure_matches_total",
			Help:      "Listed entries found while collecting type closures.",
		}),
		indexEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_entries",
			Help:      "Entries in the loaded incompatibility index.",
		}, []string{"kind"}),
		buildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_build_seconds",
			Help:      "Time spent loading and indexing incompatibility lists.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		findings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Diagnostics reported by project checks.",
		}),
	}
	r.registry.MustRegister(
		r.lookups,
		r.closureMatches,
		r.indexEntries,
		r.buildSeconds,
		r.findings,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveLookup counts one index lookup.
func (r *Recorder) ObserveLookup(kind entity.Kind, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.lookups.WithLabelValues(kind.String(), result).Inc()
}

// ObserveClosure adds the matches of one closure collection.
func (r *Recorder) ObserveClosure(matches int) {
	r.closureMatches.Add(float64(matches))
}

// ObserveBuild records a finished index build. Its signature fits
// catalog.OnBuild.
func (r *Recorder) ObserveBuild(idx *catalog.Index, took time.Duration) {
	r.buildSeconds.Observe(took.Seconds())
	for kind, n := range idx.Counts() {
		r.indexEntries.WithLabelValues(kind.String()).Set(float64(n))
	}
}

// ObserveFindings counts reported diagnostics.
func (r *Recorder) ObserveFindings(n int) {
	r.findings.Add(float64(n))
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteFile writes the registry to path in the text exposition format, for
// collection by a node exporter textfile collector.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
