// Package metrics holds the Prometheus collectors for the API and the helpers
// that record into them. Collectors are registered on the default registry
// (promauto) and served by promhttp at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yamdb_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	SignupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_signups_total",
			Help: "Signup requests by outcome (created, reissued, rejected).",
		},
		[]string{"outcome"},
	)

	TokensIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yamdb_tokens_issued_total",
			Help: "Access tokens issued for a valid confirmation code.",
		},
	)

	TokenExchangeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_token_exchange_failures_total",
			Help: "Failed confirmation-code exchanges by reason.",
		},
		[]string{"reason"},
	)

	MailSendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yamdb_mail_send_total",
			Help: "Outbound emails by result (sent, failed).",
		},
		[]string{"result"},
	)

	MailBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "yamdb_mail_breaker_state",
			Help: "1 for the mail circuit breaker's current state, 0 for the others.",
		},
		[]string{"state"},
	)
)

// RecordRequest records one completed HTTP request.
func RecordRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordSignup(outcome string) {
	SignupsTotal.WithLabelValues(outcome).Inc()
}

func RecordTokenIssued() {
	TokensIssuedTotal.Inc()
}

func RecordTokenFailure(reason string) {
	TokenExchangeFailuresTotal.WithLabelValues(reason).Inc()
}

func RecordMail(err error) {
	if err != nil {
		MailSendTotal.WithLabelValues("failed").Inc()
		return
	}
	MailSendTotal.WithLabelValues("sent").Inc()
}

// SetBreakerState marks state as the current breaker state.
func SetBreakerState(state string) {
	for _, s := range []string{"closed", "half-open", "open"} {
		v := 0.0
		if s == state {
			v = 1
		}
		MailBreakerState.WithLabelValues(s).Set(v)
	}
}
