package jetstream

import "github.com/prometheus/client_golang/prometheus"

// coreMetrics exports the delivery core's operational counters on the
// registry given to newCoreMetrics; app.Run serves that registry on
// /metrics. The TUI's metrics graph view does not plot these counters.
type coreMetrics struct {
	consumerRestarts  prometheus.Counter
	publishRetries    prometheus.Counter
	missedHeartbeats  prometheus.Counter
	fetchTerminations *prometheus.CounterVec
}

// newCoreMetrics builds the collector set and registers it against reg
// (nil registers nothing, so tests and non-Prometheus callers are
// unaffected).
func newCoreMetrics(reg prometheus.Registerer) *coreMetrics {
	m := &coreMetrics{
		consumerRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jetwatch",
			Subsystem: "jetstream",
			Name:      "consumer_restarts_total",
			Help:      "Ordered-consumer recreate operations triggered by a sequence gap or missed heartbeat.",
		}),
		publishRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jetwatch",
			Subsystem: "jetstream",
			Name:      "publish_retries_total",
			Help:      "Publish attempts retried after a 503 broker-unavailable status.",
		}),
		missedHeartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jetwatch",
			Subsystem: "jetstream",
			Name:      "missed_heartbeats_total",
			Help:      "Idle-heartbeat miss escalations observed across all subscriptions.",
		}),
		fetchTerminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jetwatch",
			Subsystem: "jetstream",
			Name:      "fetch_terminations_total",
			Help:      "Fetch iterator terminations by cause.",
		}, []string{"cause"}),
	}
	if reg != nil {
		reg.MustRegister(m.consumerRestarts, m.publishRetries, m.missedHeartbeats, m.fetchTerminations)
	}
	return m
}
