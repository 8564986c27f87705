package metrics

import "github.com/prometheus/client_golang/prometheus"

// GatewayMetrics exposes counters/histograms for generative AI calls.
type GatewayMetrics struct {
	attemptsTotal *prometheus.CounterVec
	callLatency   *prometheus.HistogramVec
}

func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	m := &GatewayMetrics{
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alloc8",
			Subsystem: "gateway",
			Name:      "attempts_total",
			Help:      "Total generative AI call attempts",
		}, []string{"outcome"}),
		callLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "alloc8",
			Subsystem: "gateway",
			Name:      "call_latency_seconds",
			Help:      "Latency of completed generative AI calls, retries included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"grounded"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.attemptsTotal, m.callLatency)
	return m
}

func (m *GatewayMetrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(outcome).Inc()
}

func (m *GatewayMetrics) ObserveCall(grounded bool, seconds float64) {
	if m == nil {
		return
	}
	label := "false"
	if grounded {
		label = "true"
	}
	m.callLatency.WithLabelValues(label).Observe(seconds)
}

// SessionMetrics tracks conversation stage progress and degrade events.
type SessionMetrics struct {
	stageLatency  *prometheus.HistogramVec
	degradedTotal *prometheus.CounterVec
	plansTotal    *prometheus.CounterVec
}

func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "alloc8",
			Subsystem: "session",
			Name:      "stage_latency_seconds",
			Help:      "Latency of conversation stages that call the AI gateway",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		degradedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alloc8",
			Subsystem: "session",
			Name:      "degraded_total",
			Help:      "Total fallback substitutions for malformed AI payloads",
		}, []string{"stage"}),
		plansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alloc8",
			Subsystem: "planner",
			Name:      "plan_requests_total",
			Help:      "Total plan requests sent to the optimization backend",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.stageLatency, m.degradedTotal, m.plansTotal)
	return m
}

func (m *SessionMetrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageLatency.WithLabelValues(stage).Observe(seconds)
}

func (m *SessionMetrics) ObserveDegraded(stage string) {
	if m == nil {
		return
	}
	m.degradedTotal.WithLabelValues(stage).Inc()
}

func (m *SessionMetrics) ObservePlanRequest(status string) {
	if m == nil {
		return
	}
	m.plansTotal.WithLabelValues(status).Inc()
}
