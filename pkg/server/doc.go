// Package server hosts flowgate's HTTP surface.
//
// Routes are registered by their owners with ServeMux patterns:
//
//	srv := server.New(&cfg.Server,
//	    server.WithMetrics(collector),
//	    server.WithHealth(checker, info),
//	    server.WithTracePropagation(),
//	)
//	demo.RegisterRoutes(srv, services)
//	err := srv.ListenAndServe(ctx)
//
// Every request passes through, outermost first: panic recovery, request ID
// assignment (X-Request-ID, a UUID when the caller sent none), request
// logging and, when enabled, W3C trace extraction. Each registered route
// records flowgate_http_requests_total and
// flowgate_http_request_duration_seconds under its pattern.
//
// Cancelling the context passed to Serve stops accepting connections and
// waits up to server.shutdown_timeout for in-flight requests.
package server
