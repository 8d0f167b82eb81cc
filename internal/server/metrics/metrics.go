// Package metrics exposes MailProof's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/mailproof/internal/server/verification"
)

const namespace = "mailproof"

// Metrics owns a private registry so that tests and multiple servers in one
// process do not collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	signatures    *prometheus.CounterVec
	verifications *prometheus.CounterVec
	keysCreated   prometheus.Counter
	keyResolve    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		signatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signatures_total",
			Help:      "Proof signatures produced, by result.",
		}, []string{"result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verification requests, by method and status.",
		}, []string{"method", "status"}),
		keysCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keys_created_total",
			Help:      "Identity keypairs generated and stored.",
		}),
		keyResolve: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "key_resolve_seconds",
			Help:      "Time to load or create an identity keypair.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.signatures,
		m.verifications,
		m.keysCreated,
		m.keyResolve,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Signed records one signing attempt.
func (m *Metrics) Signed(err error) {
	m.signatures.WithLabelValues(result(err)).Inc()
}

// KeyCreated implements keystore.Observer.
func (m *Metrics) KeyCreated() {
	m.keysCreated.Inc()
}

// KeyResolved implements keystore.Observer.
func (m *Metrics) KeyResolved(d time.Duration, err error) {
	m.keyResolve.WithLabelValues(result(err)).Observe(d.Seconds())
}

// Verified implements verification.Observer.
func (m *Metrics) Verified(method string, r verification.Result) {
	m.verifications.WithLabelValues(method, r.Status.String()).Inc()
}
