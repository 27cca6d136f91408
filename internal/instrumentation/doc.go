// Package instrumentation provides OpenTelemetry instrumentation for the
// meet slash command service.
//
// # Metrics
//
// HTTP:
//   - http_requests_total: requests by method, route and status
//   - http_request_duration_seconds: request durations
//
// Authorization flow:
//   - auth_transitions_total: state machine transitions by transition and result
//   - oauth_code_exchange_total: authorization code exchanges by result
//
// Google API:
//   - google_api_operations_total: operations by service, operation and status
//   - google_api_operation_duration_seconds: operation durations
//
// # Tracing
//
// Spans are created for each inbound leg (leg.<name>), each state machine
// transition (auth.<transition>) and each Google call
// (google.<service>.<operation>).
//
// # Configuration
//
// Configuration is read from the environment with github.com/caarlos0/env:
//   - INSTRUMENTATION_ENABLED: enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: service name (default: gmeet-slash-cmd)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	m := provider.Metrics()
//	m.RecordHTTPRequest(ctx, "POST", "/create", 200, time.Since(start))
//	m.RecordAuthTransition(ctx, instrumentation.TransitionStart, instrumentation.ResultSuccess)
package instrumentation
