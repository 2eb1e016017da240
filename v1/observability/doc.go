// Package observability defines the operation-observer contract shared by
// the library's components, together with ready-made backends for
// Prometheus metrics and OpenTelemetry tracing.
//
// Components report each completed operation as an OperationContext to an
// attached Observer. The component never depends on a concrete metrics or
// tracing system; callers decide at wiring time which backends (if any)
// receive events.
//
// # Usage
//
//	registry := prometheus.NewRegistry()
//	observer := observability.MultiObserver{
//		observability.NewPrometheusObserver(registry),
//		observability.NewTracingObserver("github.com/Aleph-Alpha/cluster"),
//	}
//	client = client.WithObserver(observer)
//
// Observers must tolerate concurrent calls; components report from
// multiple goroutines during fan-out operations.
package observability
