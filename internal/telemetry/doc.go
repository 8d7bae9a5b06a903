// Package telemetry — настройка структурированного логирования (slog)
// и Prometheus-метрики оркестратора.
package telemetry
