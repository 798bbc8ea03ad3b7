package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goPubtkt "github.com/MrEthical07/goPubtkt"
	"github.com/MrEthical07/goPubtkt/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() goPubtkt.MetricsSnapshot
	AuditDropped() uint64
	CacheStats() goPubtkt.CacheStats
}

// PrometheusExporter renders engine metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates a Prometheus exporter that reads from the given [goPubtkt.Engine].
func NewPrometheusExporter(engine *goPubtkt.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates a Prometheus exporter from any
// value exposing the engine's metrics accessors.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render writes the current metrics in Prometheus text exposition format.
// Counters are omitted entirely when the engine has metrics disabled; the
// cache gauges are always present.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	stats := p.source.CacheStats()

	var b strings.Builder
	b.Grow(4096)

	if len(snapshot.Counters) > 0 || len(snapshot.Histograms) > 0 || dropped > 0 {
		for _, def := range internaldefs.CounterDefs {
			writeMetric(&b, "counter", def.Name, def.Help, snapshot.Counters[def.ID])
		}

		for _, def := range internaldefs.HistogramDefs {
			nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
			cumulative := internaldefs.CumulativeBuckets(nonCumulative)
			writeHistogram(&b, def.Name, def.Help, cumulative)
		}

		writeMetric(&b, "counter", "pubtkt_audit_dropped_total", "Dropped audit events due to dispatcher backpressure.", dropped)
	}

	writeMetric(&b, "gauge", "pubtkt_cache_entries", "Tickets held in the in-process cache.", uint64(stats.Occupied))
	writeMetric(&b, "gauge", "pubtkt_cache_capacity", "Slots in the in-process cache.", uint64(stats.Capacity))

	return b.String()
}

func writeMetric(b *strings.Builder, kind, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" histogram\n")

	for i, le := range internaldefs.HistogramBounds {
		b.WriteString(name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	count := cumulative[len(cumulative)-1]
	b.WriteString(name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(count, 10))
	b.WriteByte('\n')

	// Snapshots carry bucket counts only.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
