package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeReused  = "reused"

	reasonRefreshFailed = "refresh_failed"
	reasonUnauthorized  = "unauthorized"
)

type Metrics struct {
	refreshes    *prometheus.CounterVec
	waiters      prometheus.Counter
	forcedLogout *prometheus.CounterVec
}

// NewMetrics registers the gateway collectors. A nil registerer leaves them
// unregistered, which tests use to read values directly.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookstore",
			Subsystem: "gateway",
			Name:      "refresh_total",
			Help:      "Refresh episodes by outcome.",
		}, []string{"outcome"}),
		waiters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookstore",
			Subsystem: "gateway",
			Name:      "refresh_waiters_total",
			Help:      "Requests that waited on an in-flight refresh.",
		}),
		forcedLogout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookstore",
			Subsystem: "gateway",
			Name:      "forced_logout_total",
			Help:      "Sessions ended by the gateway, by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.refreshes, m.waiters, m.forcedLogout)
	}
	return m
}

func (m *Metrics) refresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) waiter() {
	if m == nil {
		return
	}
	m.waiters.Inc()
}

func (m *Metrics) logout(reason string) {
	if m == nil {
		return
	}
	m.forcedLogout.WithLabelValues(reason).Inc()
}
