package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	goPhoneAuth "github.com/MrEthical07/goPhoneAuth"
	"github.com/MrEthical07/goPhoneAuth/metrics/export/internaldefs"
)

// Source is what the exporter reads on every scrape. *goPhoneAuth.Engine
// satisfies it.
type Source interface {
	MetricsSnapshot() goPhoneAuth.MetricsSnapshot
	AuditDropped() uint64
}

type Exporter struct {
	source Source
}

func New(engine *goPhoneAuth.Engine) *Exporter {
	return &Exporter{source: engine}
}

func NewFromSource(source Source) *Exporter {
	return &Exporter{source: source}
}

func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current exposition text, or "" when there is nothing
// to report.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, def := range internaldefs.CounterDefs {
		value := snapshot.Counters[def.ID]
		// the dispatcher counts drops even when metrics are disabled
		if def.ID == goPhoneAuth.MetricAuditDropped {
			value = dropped
		}
		writeCounter(&b, def.Name, def.Help, value)
	}

	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	writeHeader(b, name, help, "counter")
	writeSample(b, name, "", value)
}

func writeHistogram(b *strings.Builder, name, help string, cumulative internaldefs.Buckets) {
	writeHeader(b, name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, name+"_bucket", `{le="`+le+`"}`, cumulative[i])
	}
	writeSample(b, name+"_count", "", cumulative[len(cumulative)-1])
	// the engine keeps bucket counts only
	writeSample(b, name+"_sum", "", 0)
}

func writeSample(b *strings.Builder, name, labels string, value uint64) {
	b.WriteString(name)
	b.WriteString(labels)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	return strings.ReplaceAll(help, "\n", "\\n")
}
