// Package prometheus exports index metrics to a Prometheus registry.
//
//	reg := prometheus.NewRegistry()
//	c, err := annexprom.NewCollector(reg, "search")
//	idx, _ := annex.NewCos(768, "f16", 0, 0, 0, annex.WithMetrics(c))
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/annex"
)

// Collector implements annex.MetricsCollector with Prometheus vectors.
type Collector struct {
	latency    *prometheus.HistogramVec
	operations *prometheus.CounterVec
	batchItems *prometheus.CounterVec
	saveBytes  prometheus.Counter
	searchK    prometheus.Histogram
	capacity   prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg. An
// empty namespace defaults to "annex".
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if namespace == "" {
		namespace = "annex"
	}
	c := &Collector{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of index operations.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 12),
		}, []string{"op", "status"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Index operations by type and outcome.",
		}, []string{"op", "status"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Items submitted through batch inserts.",
		}, []string{"status"}),
		saveBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saved_bytes_total",
			Help:      "Bytes written by save and publish.",
		}),
		searchK: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_k",
			Help:      "Requested neighbor counts.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
		}),
		capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capacity_nodes",
			Help:      "Current arena capacity in nodes.",
		}),
	}

	for _, col := range []prometheus.Collector{c.latency, c.operations, c.batchItems, c.saveBytes, c.searchK, c.capacity} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, s string) {
	c.latency.WithLabelValues(op, s).Observe(d.Seconds())
	c.operations.WithLabelValues(op, s).Inc()
}

// RecordInsert implements annex.MetricsCollector.
func (c *Collector) RecordInsert(d time.Duration, err error) {
	c.observe("insert", d, status(err))
}

// RecordBatchInsert implements annex.MetricsCollector.
func (c *Collector) RecordBatchInsert(count, failed int, d time.Duration) {
	s := "success"
	if failed > 0 {
		s = "error"
	}
	c.observe("batch_insert", d, s)
	c.batchItems.WithLabelValues("success").Add(float64(count - failed))
	c.batchItems.WithLabelValues("error").Add(float64(failed))
}

// RecordSearch implements annex.MetricsCollector.
func (c *Collector) RecordSearch(k int, d time.Duration, err error) {
	c.observe("search", d, status(err))
	if err == nil {
		c.searchK.Observe(float64(k))
	}
}

// RecordSave implements annex.MetricsCollector.
func (c *Collector) RecordSave(bytes int64, d time.Duration, err error) {
	c.observe("save", d, status(err))
	if err == nil {
		c.saveBytes.Add(float64(bytes))
	}
}

// RecordLoad implements annex.MetricsCollector.
func (c *Collector) RecordLoad(d time.Duration, err error) {
	c.observe("load", d, status(err))
}

// RecordGrow implements annex.MetricsCollector.
func (c *Collector) RecordGrow(capacity int) {
	c.capacity.Set(float64(capacity))
}

var _ annex.MetricsCollector = (*Collector)(nil)
