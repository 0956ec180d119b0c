// Package logging configures log/slog for flowgate.
//
// # Usage
//
//	logger, err := logging.Setup(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	ctx = logging.WithRequestID(ctx, "9f1c...")
//	logger.InfoContext(ctx, "request handled")  // includes request_id
//
// Components derive their loggers from slog.Default with a component
// attribute:
//
//	logger := slog.Default().With("component", "rules.watcher")
//
// When the context carries an OpenTelemetry span, trace_id and span_id are
// added as well.
package logging
