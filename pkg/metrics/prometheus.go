package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal  *prometheus.CounterVec
	refills     *prometheus.CounterVec
	windowRows  *prometheus.HistogramVec
	published   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a recorder registered with the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		ticksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "synthfeed_ticks_total",
				Help: "Total number of ticks produced by a source",
			},
			[]string{"source"},
		),
		refills: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "synthfeed_window_refills_total",
				Help: "Total number of reader window refills",
			},
			[]string{"source"},
		),
		windowRows: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "synthfeed_window_rows",
				Help:    "Rows loaded per window refill",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"source"},
		),
		published: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "synthfeed_published_total",
				Help: "Total number of ticks delivered to a sink",
			},
			[]string{"sink"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "synthfeed_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "synthfeed_last_price",
				Help: "Last emitted price for an asset",
			},
			[]string{"asset"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "synthfeed_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTick records one step of a source.
func (r *Recorder) RecordTick(source string) {
	r.ticksTotal.WithLabelValues(source).Inc()
}

// RecordWindowRefill records a reader refill of rows rows.
func (r *Recorder) RecordWindowRefill(source string, rows int) {
	r.refills.WithLabelValues(source).Inc()
	r.windowRows.WithLabelValues(source).Observe(float64(rows))
}

// RecordPublished records a tick delivered to a sink.
func (r *Recorder) RecordPublished(sink string) {
	r.published.WithLabelValues(sink).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for an asset.
func (r *Recorder) RecordLastPrice(asset string, price float64) {
	r.lastPrice.WithLabelValues(asset).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
