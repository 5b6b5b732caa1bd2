package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsObserver counts events by type and severity in a Prometheus counter
// vector. It is usually combined with a SlogObserver through MultiObserver.
type MetricsObserver struct {
	events *prometheus.CounterVec
}

// NewMetricsObserver creates the counter under namespace and registers it with
// reg. A nil reg skips registration, which keeps tests isolated.
func NewMetricsObserver(namespace string, reg prometheus.Registerer) (*MetricsObserver, error) {
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of observability events by type and level.",
		},
		[]string{"type", "level"},
	)

	if reg != nil {
		if err := reg.Register(events); err != nil {
			return nil, err
		}
	}

	return &MetricsObserver{events: events}, nil
}

func (o *MetricsObserver) OnEvent(_ context.Context, event Event) {
	o.events.WithLabelValues(string(event.Type), event.Level.String()).Inc()
}

// Counter exposes the underlying vector, mainly for tests.
func (o *MetricsObserver) Counter() *prometheus.CounterVec {
	return o.events
}
