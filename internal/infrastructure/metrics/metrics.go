// Package metrics exposes the service's Prometheus instruments.
// All methods are safe on a nil *Metrics so services can run without them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "membership"

type Metrics struct {
	registry          *prometheus.Registry
	tokensIssued      prometheus.Counter
	tokensConsumed    *prometheus.CounterVec
	identifiersIssued *prometheus.CounterVec
	exhaustions       *prometheus.CounterVec
	membersRegistered prometheus.Counter
	passwordResets    *prometheus.CounterVec
	contacts          prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "verification_tokens_issued_total",
			Help: "Verification tokens issued.",
		}),
		tokensConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "verification_tokens_consumed_total",
			Help: "Token consumption attempts by outcome code.",
		}, []string{"outcome"}),
		identifiersIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "member_ids_issued_total",
			Help: "Membership identifiers issued by strategy.",
		}, []string{"strategy"}),
		exhaustions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "member_id_exhaustions_total",
			Help: "Identifier issuance failures caused by exhaustion.",
		}, []string{"code"}),
		membersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "members_registered_total",
			Help: "Members written.",
		}),
		passwordResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "password_resets_total",
			Help: "Password reset completions by outcome code.",
		}, []string{"outcome"}),
		contacts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "contact_messages_total",
			Help: "Contact form submissions stored.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tokensIssued, m.tokensConsumed, m.identifiersIssued, m.exhaustions,
		m.membersRegistered, m.passwordResets, m.contacts, m.httpRequests, m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TokenIssued() {
	if m == nil {
		return
	}
	m.tokensIssued.Inc()
}

func (m *Metrics) TokenConsumed(outcome string) {
	if m == nil {
		return
	}
	m.tokensConsumed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IdentifierIssued(strategy string) {
	if m == nil {
		return
	}
	m.identifiersIssued.WithLabelValues(strategy).Inc()
}

func (m *Metrics) IdentifierExhausted(code string) {
	if m == nil {
		return
	}
	m.exhaustions.WithLabelValues(code).Inc()
}

func (m *Metrics) MemberRegistered() {
	if m == nil {
		return
	}
	m.membersRegistered.Inc()
}

func (m *Metrics) PasswordReset(outcome string) {
	if m == nil {
		return
	}
	m.passwordResets.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ContactReceived() {
	if m == nil {
		return
	}
	m.contacts.Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
