package plugins

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tjfontaine/courier/internal/core/domain"
	"github.com/tjfontaine/courier/internal/core/ports"
)

// MetricsCollector provides Prometheus metrics for call attempts. It is safe
// for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	errorsTotal      *prometheus.CounterVec
	retriesTotal     *prometheus.CounterVec

	clock   stopwatch
	methods sync.Map
}

// NewMetricsCollector creates a collector registered with registry.
func NewMetricsCollector(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_requests_total",
				Help: "Total number of attempts that produced a response",
			},
			[]string{"method", "status_code", "target"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "courier_request_duration_seconds",
				Help:    "Duration of attempts in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "target"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "courier_requests_in_flight",
				Help: "Number of attempts currently in flight",
			},
			[]string{"method", "target"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_errors_total",
				Help: "Total number of failed attempts by error kind",
			},
			[]string{"kind", "method", "target"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "courier_retries_total",
				Help: "Total number of retry decisions",
			},
			[]string{"target"},
		),
	}
}

// Plugin returns the plugin that feeds the collector.
func (mc *MetricsCollector) Plugin() ports.Plugin {
	return ports.Plugin{
		Name: "metrics",
		WillSend: func(ctx context.Context, req *http.Request, target domain.Target) {
			mc.clock.start(ctx)
			mc.requestsInFlight.WithLabelValues(req.Method, domain.TargetName(target)).Inc()
			mc.methods.Store(ctx, req.Method)
		},
		DidReceive: func(ctx context.Context, result domain.Result, target domain.Target) {
			name := domain.TargetName(target)
			method := http.MethodGet
			if m, ok := mc.methods.LoadAndDelete(ctx); ok {
				method = m.(string)
			}

			mc.requestsInFlight.WithLabelValues(method, name).Dec()
			mc.requestDuration.WithLabelValues(method, name).Observe(mc.clock.stop(ctx).Seconds())

			if status := result.StatusCode(); status != 0 {
				mc.requestsTotal.WithLabelValues(method, strconv.Itoa(status), name).Inc()
			}
			if result.Err != nil {
				mc.errorsTotal.WithLabelValues(string(result.Err.Kind), method, name).Inc()
			}
		},
	}
}

// Completion wraps next and counts its Retry decisions.
func (mc *MetricsCollector) Completion(next ports.CompletionStrategy) ports.CompletionStrategy {
	return ports.CompletionFunc(func(ctx context.Context, attempt ports.Attempt) ports.Decision {
		decision := next.Decide(ctx, attempt)
		if decision == ports.Retry {
			mc.retriesTotal.WithLabelValues(domain.TargetName(attempt.Target)).Inc()
		}
		return decision
	})
}
