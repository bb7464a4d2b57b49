// Package metrics exposes workflow counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/firstcall/internal/domain/firstcall"
)

const namespace = "firstcall"

// Metrics holds the service counters on a private registry. It satisfies
// firstcall.Observer and outbox.Observer.
type Metrics struct {
	registry *prometheus.Registry

	casesCreated     prometheus.Counter
	stageTransitions *prometheus.CounterVec
	casesFinalized   prometheus.Counter
	conflicts        prometheus.Counter
	outboxDispatch   *prometheus.CounterVec
}

// New creates the counters and registers them with Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		casesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_created_total",
			Help:      "First Call cases created.",
		}),
		stageTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Workflow stage transitions.",
		}, []string{"from", "to"}),
		casesFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cases_finalized_total",
			Help:      "Cases that reached the complete stage.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_conflicts_total",
			Help:      "Concurrent writes that had to be retried on fresh state.",
		}),
		outboxDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_dispatch_total",
			Help:      "Outbox delivery attempts by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.casesCreated,
		m.stageTransitions,
		m.casesFinalized,
		m.conflicts,
		m.outboxDispatch,
	)
	return m
}

// Handler serves the registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) CaseCreated() {
	m.casesCreated.Inc()
}

func (m *Metrics) StageChanged(from, to firstcall.Stage) {
	m.stageTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) CaseFinalized() {
	m.casesFinalized.Inc()
}

func (m *Metrics) ConflictRetried() {
	m.conflicts.Inc()
}

// EventDispatched counts one outbox delivery attempt; result is
// "delivered" or "failed".
func (m *Metrics) EventDispatched(result string) {
	m.outboxDispatch.WithLabelValues(result).Inc()
}
