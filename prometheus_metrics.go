package ninjadb

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics implements the Metrics interface using Prometheus
type PrometheusMetrics struct {
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	registry   prometheus.Registerer
}

// NewPrometheusMetrics creates a new Prometheus metrics instance.
// If registry is nil, uses the default Prometheus registerer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	pm := &PrometheusMetrics{
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		registry:   registry,
	}

	pm.registerDefaultMetrics()
	return pm
}

func (p *PrometheusMetrics) registerDefaultMetrics() {
	factory := promauto.With(p.registry)

	p.counters[MetricOperations] = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ninjadb",
			Name:      "operations_total",
			Help:      "Total number of mapper operations",
		},
		[]string{"operation", "backend"},
	)

	p.counters[MetricErrors] = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ninjadb",
			Name:      "errors_total",
			Help:      "Total number of failed mapper operations",
		},
		[]string{"operation", "backend"},
	)

	p.counters[MetricRejectedFilters] = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ninjadb",
			Subsystem: "filters",
			Name:      "rejected_total",
			Help:      "Filters rejected before reaching the backend",
		},
		[]string{"reason"},
	)

	p.counters[MetricSequenceNext] = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ninjadb",
			Subsystem: "sequence",
			Name:      "allocations_total",
			Help:      "Document ids allocated by the file store",
		},
		[]string{"source"},
	)

	p.counters[MetricSequenceRetries] = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ninjadb",
			Subsystem: "sequence",
			Name:      "retries_total",
			Help:      "Compare-and-swap retries while allocating ids",
		},
		[]string{"source"},
	)

	p.histograms[MetricLatency] = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ninjadb",
			Name:      "operation_duration_seconds",
			Help:      "Mapper operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "backend"},
	)

	p.histograms[MetricFetchResults] = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ninjadb",
			Subsystem: "fetch",
			Name:      "results",
			Help:      "Number of documents returned by fetch",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
		[]string{"collection"},
	)
}

// Increment increments a Prometheus counter
func (p *PrometheusMetrics) Increment(name string, tags ...string) {
	p.mu.Lock()
	counter, ok := p.counters[name]
	if !ok {
		counter = promauto.With(p.registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ninjadb",
				Name:      sanitizeMetricName(name),
				Help:      "Dynamic counter: " + name,
			},
			extractLabels(tags),
		)
		p.counters[name] = counter
	}
	p.mu.Unlock()

	counter.With(extractLabelValues(tags)).Inc()
}

// Gauge sets a Prometheus gauge value
func (p *PrometheusMetrics) Gauge(name string, value float64, tags ...string) {
	p.mu.Lock()
	gauge, ok := p.gauges[name]
	if !ok {
		gauge = promauto.With(p.registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ninjadb",
				Name:      sanitizeMetricName(name),
				Help:      "Dynamic gauge: " + name,
			},
			extractLabels(tags),
		)
		p.gauges[name] = gauge
	}
	p.mu.Unlock()

	gauge.With(extractLabelValues(tags)).Set(value)
}

// Histogram records a value in a Prometheus histogram
func (p *PrometheusMetrics) Histogram(name string, value float64, tags ...string) {
	p.mu.Lock()
	histogram, ok := p.histograms[name]
	if !ok {
		histogram = promauto.With(p.registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ninjadb",
				Name:      sanitizeMetricName(name),
				Help:      "Dynamic histogram: " + name,
				Buckets:   prometheus.DefBuckets,
			},
			extractLabels(tags),
		)
		p.histograms[name] = histogram
	}
	p.mu.Unlock()

	histogram.With(extractLabelValues(tags)).Observe(value)
}

// Timing records a duration in a Prometheus histogram
func (p *PrometheusMetrics) Timing(name string, duration time.Duration, tags ...string) {
	p.Histogram(name, duration.Seconds(), tags...)
}

// extractLabels extracts label names from tags (every even index)
func extractLabels(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	labels := make([]string, 0, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		labels = append(labels, tags[i])
	}
	return labels
}

// extractLabelValues creates a label map from tags (key-value pairs)
func extractLabelValues(tags []string) prometheus.Labels {
	labels := make(prometheus.Labels, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		labels[tags[i]] = tags[i+1]
	}
	return labels
}

// "ninjadb.cache.hits" -> "cache_hits"
func sanitizeMetricName(name string) string {
	name = strings.TrimPrefix(name, "ninjadb.")
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
