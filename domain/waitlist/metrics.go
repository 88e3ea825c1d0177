package waitlist

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	outcomes *prometheus.CounterVec
}

// NewMetrics registers the intake counters on reg. Registering twice reuses
// the collector that is already there. A nil reg keeps the counters private.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_intake_outcomes_total",
			Help: "Waitlist submissions by terminal outcome.",
		},
		[]string{"outcome"},
	)

	if reg != nil {
		if err := reg.Register(outcomes); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					outcomes = existing
				}
			}
		}
	}

	return &Metrics{outcomes: outcomes}
}

func (m *Metrics) Observe(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}
