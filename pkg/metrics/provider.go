package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics records metadata for outbound payment provider calls.
type ProviderMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	retries  *prometheus.CounterVec
}

// NewProviderMetrics registers the provider call metrics on the provided registerer.
func NewProviderMetrics(reg prometheus.Registerer) *ProviderMetrics {
	if reg == nil {
		return &ProviderMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_provider_call_duration_seconds",
		Help:    "Duration of payment provider calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_provider_call_success",
		Help: "Successful payment provider calls.",
	}, []string{"provider", "operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_provider_call_failure",
		Help: "Failed payment provider calls.",
	}, []string{"provider", "operation"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_provider_call_retries",
		Help: "Retried payment provider calls.",
	}, []string{"provider", "operation"})
	reg.MustRegister(duration, success, failure, retries)
	return &ProviderMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		retries:  retries,
	}
}

// ObserveDuration records the duration for the named provider operation.
func (p *ProviderMetrics) ObserveDuration(provider, operation string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named provider operation.
func (p *ProviderMetrics) IncSuccess(provider, operation string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named provider operation.
func (p *ProviderMetrics) IncFailure(provider, operation string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Inc()
}

// IncRetry increments the retry counter for the named provider operation.
func (p *ProviderMetrics) IncRetry(provider, operation string) {
	if p == nil || p.retries == nil {
		return
	}
	p.retries.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
