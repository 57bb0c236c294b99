// Package observability provides logging, metrics, tracing, and health
// checking for the capsule service.
//
// # Logging
//
// Logger wraps log/slog with a JSON handler and field chaining:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", id).Info("user created")
//
// # Metrics
//
// NewMetrics registers Prometheus collectors for HTTP, auth, upload, and
// storage operations on a dedicated registry; Handler() serves the
// exposition endpoint on the health port.
//
// # Tracing
//
// InitOTel wires an OTLP gRPC trace exporter when enabled; blob storage
// operations create spans through the global tracer provider.
//
// # Shutdown
//
// ShutdownManager drains the HTTP server, then runs registered shutdown
// functions (DB close, Redis close, tracer flush) under a shared timeout.
package observability
