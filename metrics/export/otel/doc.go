// Package otel publishes goAuthState gateway metrics through OpenTelemetry.
//
// [NewOTelExporter] registers an Int64ObservableCounter per gateway counter
// and an Int64ObservableGauge per latency bucket. A single callback reads
// [goAuthState.Gateway.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Mutate gateway state.
package otel
