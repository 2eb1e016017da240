package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver translates operation events into Prometheus metrics.
// It maintains a counter of operations by component, operation, and outcome,
// and a histogram of operation durations.
//
// PrometheusObserver implements the Observer interface.
type PrometheusObserver struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationSize     *prometheus.HistogramVec
}

// NewPrometheusObserver creates a PrometheusObserver and registers its
// collectors with the provided registerer.
//
// Parameters:
//   - reg: The Prometheus registerer to register collectors with.
//     Pass prometheus.DefaultRegisterer to use the process-global registry,
//     or a dedicated *prometheus.Registry to keep metrics isolated.
//
// Returns:
//   - *PrometheusObserver: An observer ready to be attached to a component
//
// Registered metrics:
//   - operations_total{component,operation,status}
//   - operation_duration_seconds{component,operation}
//   - operation_size{component,operation}
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	observer := observability.NewPrometheusObserver(registry)
//	client = client.WithObserver(observer)
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	o := &PrometheusObserver{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "operations_total",
			Help: "Total number of completed operations by outcome",
		}, []string{"component", "operation", "status"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"component", "operation"}),
		operationSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "operation_size",
			Help:    "Operation-defined size, e.g. targeted node count or payload bytes",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"component", "operation"}),
	}

	reg.MustRegister(o.operationsTotal, o.operationDuration, o.operationSize)
	return o
}

// ObserveOperation records the event as metric samples.
func (o *PrometheusObserver) ObserveOperation(ctx OperationContext) {
	status := "success"
	if ctx.Error != nil {
		status = "error"
	}

	o.operationsTotal.WithLabelValues(ctx.Component, ctx.Operation, status).Inc()
	o.operationDuration.WithLabelValues(ctx.Component, ctx.Operation).Observe(ctx.Duration.Seconds())
	if ctx.Size > 0 {
		o.operationSize.WithLabelValues(ctx.Component, ctx.Operation).Observe(float64(ctx.Size))
	}
}
