// Package tracing sets up OpenTelemetry tracing for guarded calls.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	g := guard.New(gate.New(manager), guard.WithTracer(tracer.Tracer()))
//
// Every guarded call then produces a span named "guard/<resource>" with the
// resource, entry type and outcome as attributes.
//
// # Exporters
//
// Spans are exported over OTLP gRPC to telemetry.tracing.endpoint. Jaeger,
// Zipkin and most vendors accept OTLP directly.
//
// # Sampling
//
//   - always: every trace
//   - never: no traces
//   - ratio: sample_ratio of traces, chosen by trace ID
//
// All samplers respect the parent span's decision.
//
// # Propagation
//
// HTTPMiddleware extracts W3C traceparent headers from incoming requests;
// Inject writes them on outgoing requests, so a consumer and its provider
// share one trace.
package tracing
