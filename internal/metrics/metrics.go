package metrics

import (
	"net/http"
	"time"

	"github.com/berfenger/amicomm/internal/core/domain"
	"github.com/berfenger/amicomm/pkg/psem"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "amicomm"

type Metrics struct {
	registry      *prometheus.Registry
	procedureTime *prometheus.HistogramVec
	polls         *prometheus.CounterVec
	sectionErrors *prometheus.CounterVec
	neighbors     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		procedureTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "psem",
			Name:      "call_duration_seconds",
			Help:      "Duration of PSEM procedure calls and table lookups.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"fn"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diagnostics",
			Name:      "polls_total",
			Help:      "Diagnostics polls by outcome.",
		}, []string{"result"}),
		sectionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "diagnostics",
			Name:      "section_errors_total",
			Help:      "Diagnostics sections that could not be read.",
		}, []string{"section"}),
		neighbors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "diagnostics",
			Name:      "neighbors",
			Help:      "Non-empty neighbor slots in the last poll.",
		}),
	}
	m.registry.MustRegister(
		m.procedureTime,
		m.polls,
		m.sectionErrors,
		m.neighbors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Instrument feeds psem call timings into the procedure histogram.
func (m *Metrics) Instrument() *psem.Instrument {
	return &psem.Instrument{
		RecordTime: func(fnName string, duration time.Duration) {
			m.procedureTime.WithLabelValues(fnName).Observe(duration.Seconds())
		},
	}
}

func (m *Metrics) ObserveSnapshot(s *domain.Snapshot) {
	if s.Complete() {
		m.polls.WithLabelValues("complete").Inc()
	} else {
		m.polls.WithLabelValues("partial").Inc()
	}
	for section := range s.Errors {
		m.sectionErrors.WithLabelValues(section).Inc()
	}
	if _, failed := s.Errors[domain.SECTION_NEIGHBORS]; !failed {
		m.neighbors.Set(float64(len(s.Neighbors)))
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
