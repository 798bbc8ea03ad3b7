// Package otel provides OpenTelemetry metric exporter bindings for goPubtkt
// counters and histograms.
//
// [NewOTelExporter] registers Int64ObservableCounter instruments for each
// engine counter, an Int64ObservableGauge per histogram bucket and one for
// cache occupancy. A single callback reads [goPubtkt.Engine.MetricsSnapshot]
// on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
