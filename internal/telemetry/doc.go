// Package telemetry provides structured logging and Prometheus metrics
// for ensemble runs.
//
//   - logging.go: slog setup driven by LOG_LEVEL / LOG_FORMAT
//   - metrics.go: run, member and decomposition metrics
package telemetry
