package services

import (
	"strconv"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	httpRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "dwell_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"method", "route", "code"})

	httpDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dwell_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.3, 0.6, 1, 3, 6},
	}, []string{"method", "route"})

	stkPushes = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "dwell_mpesa_stk_push_total",
		Help: "STK push attempts by outcome (accepted, rejected, provider_error).",
	}, []string{"outcome"})

	mpesaCallbacks = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "dwell_mpesa_callbacks_total",
		Help: "M-Pesa callbacks by result (success, failed, duplicate, unknown).",
	}, []string{"result"})

	sweptTransactions = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Name: "dwell_payments_swept_total",
		Help: "Pending transactions expired by the sweeper.",
	})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// MetricsHandler exposes the registry in the Prometheus text format.
func MetricsHandler() iris.Handler {
	return iris.FromStd(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

// MetricsMiddleware records a request count and latency per matched route.
func MetricsMiddleware(ctx iris.Context) {
	start := time.Now()
	ctx.Next()

	route := "unmatched"
	if r := ctx.GetCurrentRoute(); r != nil {
		route = r.Path()
	}
	httpRequests.WithLabelValues(ctx.Method(), route, strconv.Itoa(ctx.GetStatusCode())).Inc()
	httpDuration.WithLabelValues(ctx.Method(), route).Observe(time.Since(start).Seconds())
}
