package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the generation pipeline counters.
type Metrics struct {
	GenerationAttempts *prometheus.CounterVec
	GenerationFailures *prometheus.CounterVec
	PhotosCompleted    prometheus.Counter
	RoundsExhausted    prometheus.Counter
	SweepRuns          prometheus.Counter
	handler            http.Handler
}

// New creates the metric set against the given registry. Passing a fresh
// registry keeps tests independent; production uses prometheus.DefaultRegisterer
// via NewDefault.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		GenerationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "generation_attempts_total",
			Help: "Design generation attempts, by outcome.",
		}, []string{"outcome"}),
		GenerationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "generation_failures_total",
			Help: "Design generation failures, by failure kind.",
		}, []string{"kind"}),
		PhotosCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "photos_completed_total",
			Help: "Photos whose full design collection finished.",
		}),
		RoundsExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "generation_rounds_exhausted_total",
			Help: "Full-generation runs that ran out of rounds before converging.",
		}),
		SweepRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Completed sweep passes.",
		}),
	}
	if gatherer != nil {
		m.handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	return m
}

// NewDefault registers against the global prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// Handler exposes the /metrics endpoint for the configured gatherer.
func (m *Metrics) Handler() http.Handler {
	if m.handler == nil {
		return promhttp.Handler()
	}
	return m.handler
}
