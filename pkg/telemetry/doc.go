// Package telemetry groups flowgate's observability packages.
//
//   - logging: slog setup with request, resource and trace IDs from context
//   - metrics: the Prometheus registry and /metrics handler
//   - tracing: OpenTelemetry provider and W3C propagation
//   - health: liveness, readiness and version endpoints
//
// Guard-level metrics are defined in package limits and registered on the
// metrics registry; guard spans are produced by package guard from the
// tracer built here.
package telemetry
