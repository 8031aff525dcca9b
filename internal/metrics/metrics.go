package metrics

import "github.com/prometheus/client_golang/prometheus"

// AvailabilityMetrics exposes counters/histograms for availability queries.
// It implements availability.Observer.
type AvailabilityMetrics struct {
	queriesTotal         *prometheus.CounterVec
	queryLatency         *prometheus.HistogramVec
	slotsTotal           *prometheus.CounterVec
	degradedDatesTotal   prometheus.Counter
	cacheTotal           *prometheus.CounterVec
	violationsTotal      *prometheus.CounterVec
	rejectedQueriesTotal prometheus.Counter
}

func NewAvailabilityMetrics(reg prometheus.Registerer) *AvailabilityMetrics {
	m := &AvailabilityMetrics{
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "queries_total",
			Help:      "Availability queries by outcome",
		}, []string{"outcome"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "query_latency_seconds",
			Help:      "Latency of availability queries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		slotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "slots_total",
			Help:      "Generated slots by availability",
		}, []string{"available"}),
		degradedDatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "degraded_dates_total",
			Help:      "Dates returned with zero slots after a computation failure",
		}),
		cacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "cache_lookups_total",
			Help:      "Availability cache lookups by result",
		}, []string{"result"}),
		violationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "integrity_violations_total",
			Help:      "Integrity violations found by the validator",
		}, []string{"code"}),
		rejectedQueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "rejected_queries_total",
			Help:      "Queries rejected because too many identical ones were in flight",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.queriesTotal,
		m.queryLatency,
		m.slotsTotal,
		m.degradedDatesTotal,
		m.cacheTotal,
		m.violationsTotal,
		m.rejectedQueriesTotal,
	)
	return m
}

func (m *AvailabilityMetrics) ObserveQuery(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(outcome).Inc()
	m.queryLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *AvailabilityMetrics) ObserveDay(total, available int) {
	if m == nil {
		return
	}
	m.slotsTotal.WithLabelValues("true").Add(float64(available))
	m.slotsTotal.WithLabelValues("false").Add(float64(total - available))
}

func (m *AvailabilityMetrics) ObserveDegradedDate() {
	if m == nil {
		return
	}
	m.degradedDatesTotal.Inc()
}

func (m *AvailabilityMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	m.cacheTotal.WithLabelValues(label).Inc()
}

func (m *AvailabilityMetrics) ObserveIntegrityViolation(code string) {
	if m == nil {
		return
	}
	m.violationsTotal.WithLabelValues(code).Inc()
}

func (m *AvailabilityMetrics) ObserveRejectedQuery() {
	if m == nil {
		return
	}
	m.rejectedQueriesTotal.Inc()
}
