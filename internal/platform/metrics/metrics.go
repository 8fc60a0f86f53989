package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "veristry/pkg/domain-errors"
)

// Metrics holds the Prometheus metrics shared across the registries.
type Metrics struct {
	Operations       *prometheus.CounterVec
	ReplayRejections prometheus.Counter
	IdentitiesLive   prometheus.Gauge
}

// New creates and registers all metrics with the default registerer.
func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "veristry_operations_total",
			Help: "Registry operations by registry, operation, and outcome",
		}, []string{"registry", "operation", "outcome"}),
		ReplayRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "veristry_replay_rejections_total",
			Help: "Operations rejected because their digest was already consumed",
		}),
		IdentitiesLive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "veristry_identities_live",
			Help: "Currently registered identities",
		}),
	}
}

// ObserveOperation records one operation outcome. Replay rejections are
// additionally counted on their own series.
func (m *Metrics) ObserveOperation(registry, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
		if dErrors.HasCode(err, dErrors.CodeDigestReused) {
			m.ReplayRejections.Inc()
		}
	}
	m.Operations.WithLabelValues(registry, operation, outcome).Inc()
}
