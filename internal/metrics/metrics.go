// Package metrics provides Prometheus metrics for catalog scans and decodes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors recorded by the pipeline. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	ScansTotal        prometheus.Counter
	RootsSkipped      prometheus.Counter
	EntriesDiscovered prometheus.Counter
	EntriesExcluded   *prometheus.CounterVec
	DecodesTotal      *prometheus.CounterVec
	DecodeDuration    prometheus.Histogram
	TrianglesDecoded  prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stl_catalog_scans_total",
			Help: "Total number of catalog scans",
		}),
		RootsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stl_catalog_roots_skipped_total",
			Help: "Storage roots that could not be opened during a scan",
		}),
		EntriesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stl_catalog_entries_discovered_total",
			Help: "Plausible STL files added to a catalog",
		}),
		EntriesExcluded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stl_catalog_entries_excluded_total",
				Help: "Candidate entries left out of a catalog",
			},
			[]string{"reason"},
		),
		DecodesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stl_decodes_total",
				Help: "Mesh decodes by outcome",
			},
			[]string{"result"},
		),
		DecodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stl_decode_duration_seconds",
			Help:    "Time taken to decode a mesh",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		TrianglesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stl_triangles_decoded_total",
			Help: "Triangles in successfully decoded meshes",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ScansTotal,
			m.RootsSkipped,
			m.EntriesDiscovered,
			m.EntriesExcluded,
			m.DecodesTotal,
			m.DecodeDuration,
			m.TrianglesDecoded,
		)
	}
	return m
}

// RecordScan records one completed scan.
func (m *Metrics) RecordScan(discovered int) {
	if m == nil {
		return
	}
	m.ScansTotal.Inc()
	m.EntriesDiscovered.Add(float64(discovered))
}

// RecordRootSkipped records a root that could not be opened.
func (m *Metrics) RecordRootSkipped() {
	if m == nil {
		return
	}
	m.RootsSkipped.Inc()
}

// RecordExcluded records one excluded candidate.
func (m *Metrics) RecordExcluded(reason string) {
	if m == nil {
		return
	}
	m.EntriesExcluded.WithLabelValues(reason).Inc()
}

// RecordDecode records a decode outcome. kind is "ok" or an error kind label.
func (m *Metrics) RecordDecode(kind string, triangles int, d time.Duration) {
	if m == nil {
		return
	}
	m.DecodesTotal.WithLabelValues(kind).Inc()
	m.DecodeDuration.Observe(d.Seconds())
	if kind == "ok" {
		m.TrianglesDecoded.Add(float64(triangles))
	}
}
