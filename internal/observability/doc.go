// Package observability provides logging, metrics, and tracing
// functionality for the insurance services.
//
// # Logging
//
// The Logger interface provides structured logging backed by zap:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("quote calculated",
//	    observability.String("quote_id", id),
//	    observability.Float64("monthly_premium", premium),
//	)
//
// # Metrics
//
// Prometheus metrics live in a private registry exposed by Handler:
//
//	metrics := observability.NewMetrics("insurance")
//	router.GET("/metrics", gin.WrapH(metrics.Handler()))
//
// All Metrics methods are safe to call on a nil receiver.
//
// # Tracing
//
// OpenTelemetry tracing with OTLP gRPC export. A disabled tracer still
// hands out no-op spans, so callers never check whether tracing is on.
package observability
