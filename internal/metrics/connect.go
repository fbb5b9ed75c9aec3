package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Connect-flow Prometheus metrics. Defined in a standalone package to avoid
// import cycles between connectors and HTTP packages.

var (
	ExchangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_exchanges_total",
		Help: "Code exchanges by platform and result",
	}, []string{"platform", "result"}) // result: ok|error

	RefreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_refreshes_total",
		Help: "Token refreshes by platform and result",
	}, []string{"platform", "result"}) // result: ok|error|unsupported

	VerifiesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_token_verifications_total",
		Help: "Token verifications by platform and outcome",
	}, []string{"platform", "valid"})

	ExchangeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oauth_exchange_duration_seconds",
		Help:    "Latency of the code exchange against the platform",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})

	SessionsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "client_sessions_created_total",
		Help: "Ephemeral client sessions created",
	})

	SessionsExpiredLookups = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "client_session_expired_lookups_total",
		Help: "Session lookups that found nothing (expired or never existed)",
	})
)

// RegisterConnect registers the connect-flow metrics on the given registry
// (or default if nil).
func RegisterConnect(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		ExchangesTotal, RefreshesTotal, VerifiesTotal,
		ExchangeDuration, SessionsCreatedTotal, SessionsExpiredLookups,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
