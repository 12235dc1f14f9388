package registry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/reglet-dev/devkit/domain/entities"
)

// Hook call outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeSkipped = "skipped"
)

// Metrics records plugin hook dispatch.
type Metrics struct {
	HookCalls    *prometheus.CounterVec
	HookDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the hook metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HookCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devkit_plugin_hook_calls_total",
				Help: "Total number of plugin hook calls by plugin, hook and outcome",
			},
			[]string{"plugin", "hook", "outcome"},
		),
		HookDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devkit_plugin_hook_duration_seconds",
				Help:    "Duration of plugin hook calls by hook",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"hook"},
		),
	}

	reg.MustRegister(m.HookCalls)
	reg.MustRegister(m.HookDuration)

	return m
}

func (m *Metrics) observe(plugin string, hook entities.Hook, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HookCalls.WithLabelValues(plugin, string(hook), outcome).Inc()
	if outcome != OutcomeSkipped {
		m.HookDuration.WithLabelValues(string(hook)).Observe(elapsed.Seconds())
	}
}
