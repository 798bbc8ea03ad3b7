// Package prometheus renders goPubtkt engine metrics for Prometheus.
//
// [NewPrometheusExporter] accepts a [goPubtkt.Engine] and exposes an
// [http.Handler] that renders all counters, the Authenticate latency
// histogram and the cache occupancy gauges in text exposition format.
// Counter names are pubtkt_*_total; the histogram is
// pubtkt_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
