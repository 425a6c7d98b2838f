// Package metrics counts composition events with Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/chazu/trayforge/pkg/event"
)

// Collector is an event.Sink that increments Prometheus counters.
type Collector struct {
	primitives *prometheus.CounterVec
	steps      *prometheus.CounterVec
	repairs    *prometheus.CounterVec
	validated  *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		primitives: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trayforge_primitives_built_total",
				Help: "Primitive solids built, by kind.",
			},
			[]string{"kind"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trayforge_boolean_steps_total",
				Help: "Boolean pipeline steps, by operator and outcome.",
			},
			[]string{"op", "outcome"},
		),
		repairs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trayforge_repairs_total",
				Help: "Mesh repair attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		validated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trayforge_validated_total",
				Help: "Solids validated, by final closedness.",
			},
			[]string{"closed"},
		),
	}
	for _, col := range []prometheus.Collector{c.primitives, c.steps, c.repairs, c.validated} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Publish implements event.Sink.
func (c *Collector) Publish(e event.Event) {
	switch e.Kind {
	case event.PrimitiveBuilt:
		c.primitives.WithLabelValues(e.Op).Inc()
	case event.StepSucceeded:
		c.steps.WithLabelValues(e.Op, "ok").Inc()
	case event.FallbackTriggered:
		c.steps.WithLabelValues(e.Op, "fallback").Inc()
	case event.RepairAttempted:
		c.repairs.WithLabelValues("attempted").Inc()
	case event.Validated:
		if e.Repaired {
			outcome := "failed"
			if e.Closed {
				outcome = "closed"
			}
			c.repairs.WithLabelValues(outcome).Inc()
		}
		closed := "false"
		if e.Closed {
			closed = "true"
		}
		c.validated.WithLabelValues(closed).Inc()
	}
}

// WriteFile writes everything gathered from g to path in the text
// exposition format, for node_exporter's textfile collector.
func WriteFile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
