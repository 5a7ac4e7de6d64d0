package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dashboard's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	RenderPasses     prometheus.Counter
	FilterCacheHits  prometheus.Counter
	FilterCacheMiss  prometheus.Counter
	SubregionOutcome *prometheus.CounterVec
	DatasetRecords   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RenderPasses: f.NewCounter(prometheus.CounterOpts{
			Name: "section8map_render_passes_total",
			Help: "Total number of full dashboard render passes",
		}),
		FilterCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "section8map_filter_cache_hits_total",
			Help: "Filter calls answered from the memo cache",
		}),
		FilterCacheMiss: f.NewCounter(prometheus.CounterOpts{
			Name: "section8map_filter_cache_misses_total",
			Help: "Filter calls that computed a new result",
		}),
		SubregionOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "section8map_subregion_renders_total",
			Help: "Per-county render results by outcome (rendered, warned, errored)",
		}, []string{"outcome"}),
		DatasetRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "section8map_dataset_records",
			Help: "Number of records in the loaded dataset",
		}),
	}
}

func (m *Metrics) IncRenderPasses() {
	if m == nil {
		return
	}
	m.RenderPasses.Inc()
}

func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.FilterCacheHits.Inc()
}

func (m *Metrics) IncCacheMiss() {
	if m == nil {
		return
	}
	m.FilterCacheMiss.Inc()
}

// ObserveOutcome counts one subregion ending in outcome.
func (m *Metrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.SubregionOutcome.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetDatasetRecords(n int) {
	if m == nil {
		return
	}
	m.DatasetRecords.Set(float64(n))
}
