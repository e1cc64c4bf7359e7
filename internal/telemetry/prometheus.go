package telemetry

import (
	"fmt"
	"sort"
	"strings"
)

// PrometheusFormat exports all metrics in Prometheus text exposition format.
// See: https://prometheus.io/docs/instrumenting/exposition_formats/
func (t *Telemetry) PrometheusFormat() string {
	var sb strings.Builder

	writeCounter(&sb, t.EvalRequests)
	writeHistogram(&sb, t.EvalLatency)
	writeCounterVec(&sb, t.EvalErrors)
	writeHistogramVec(&sb, t.MetricDuration)
	writeHistogram(&sb, t.ExplainerCount)

	writeCounter(&sb, t.ModelRequests)
	writeHistogram(&sb, t.ModelLatency)
	writeCounter(&sb, t.ModelErrors)

	writeCounterVec(&sb, t.CacheHits)
	writeCounterVec(&sb, t.CacheMisses)
	writeGaugeVec(&sb, t.CacheSize)

	writeCounterVec(&sb, t.BusEventsPublished)
	writeCounterVec(&sb, t.BusErrors)

	writeCounterVec(&sb, t.HTTPRequests)
	writeHistogramVec(&sb, t.HTTPDuration)
	writeGauge(&sb, t.HTTPRequestsInFlight)

	writeGauge(&sb, t.GoroutineCount)
	writeGauge(&sb, t.MemoryUsage)
	writeCounter(&sb, t.Uptime)

	return sb.String()
}

func writeCounter(sb *strings.Builder, c *Counter) {
	fmt.Fprintf(sb, "# HELP %s %s\n", c.Name(), c.Help())
	fmt.Fprintf(sb, "# TYPE %s counter\n", c.Name())
	sb.WriteString(c.Name())
	writeLabels(sb, c.Labels())
	fmt.Fprintf(sb, " %d\n", c.Value())
}

func writeGauge(sb *strings.Builder, g *Gauge) {
	fmt.Fprintf(sb, "# HELP %s %s\n", g.Name(), g.Help())
	fmt.Fprintf(sb, "# TYPE %s gauge\n", g.Name())
	sb.WriteString(g.Name())
	writeLabels(sb, g.Labels())
	fmt.Fprintf(sb, " %g\n", g.Value())
}

func writeHistogram(sb *strings.Builder, h *Histogram) {
	fmt.Fprintf(sb, "# HELP %s %s\n", h.Name(), h.Help())
	fmt.Fprintf(sb, "# TYPE %s histogram\n", h.Name())
	writeHistogramSeries(sb, h)
}

func writeHistogramSeries(sb *strings.Builder, h *Histogram) {
	buckets := h.Buckets()
	counts := h.BucketCounts()
	labels := h.Labels()

	for i, bucket := range buckets {
		withLE := cloneLabels(labels)
		withLE["le"] = fmt.Sprintf("%g", bucket)
		sb.WriteString(h.Name())
		sb.WriteString("_bucket")
		writeLabels(sb, withLE)
		fmt.Fprintf(sb, " %d\n", counts[i])
	}

	withInf := cloneLabels(labels)
	withInf["le"] = "+Inf"
	sb.WriteString(h.Name())
	sb.WriteString("_bucket")
	writeLabels(sb, withInf)
	fmt.Fprintf(sb, " %d\n", counts[len(counts)-1])

	sb.WriteString(h.Name())
	sb.WriteString("_sum")
	writeLabels(sb, labels)
	fmt.Fprintf(sb, " %.4f\n", h.Sum())

	sb.WriteString(h.Name())
	sb.WriteString("_count")
	writeLabels(sb, labels)
	fmt.Fprintf(sb, " %d\n", h.Count())
}

func writeCounterVec(sb *strings.Builder, cv *CounterVec) {
	counters := cv.GetAll()
	if len(counters) == 0 {
		return
	}

	fmt.Fprintf(sb, "# HELP %s %s\n", cv.Name(), cv.Help())
	fmt.Fprintf(sb, "# TYPE %s counter\n", cv.Name())
	for _, c := range counters {
		sb.WriteString(c.Name())
		writeLabels(sb, c.Labels())
		fmt.Fprintf(sb, " %d\n", c.Value())
	}
}

func writeGaugeVec(sb *strings.Builder, gv *GaugeVec) {
	gauges := gv.GetAll()
	if len(gauges) == 0 {
		return
	}

	fmt.Fprintf(sb, "# HELP %s %s\n", gv.Name(), gv.Help())
	fmt.Fprintf(sb, "# TYPE %s gauge\n", gv.Name())
	for _, g := range gauges {
		sb.WriteString(g.Name())
		writeLabels(sb, g.Labels())
		fmt.Fprintf(sb, " %g\n", g.Value())
	}
}

func writeHistogramVec(sb *strings.Builder, hv *HistogramVec) {
	histograms := hv.GetAll()
	if len(histograms) == 0 {
		return
	}

	fmt.Fprintf(sb, "# HELP %s %s\n", hv.Name(), hv.Help())
	fmt.Fprintf(sb, "# TYPE %s histogram\n", hv.Name())
	for _, h := range histograms {
		writeHistogramSeries(sb, h)
	}
}

// writeLabels writes labels as {key="value",key2="value2"}.
func writeLabels(sb *strings.Builder, labels map[string]string) {
	if len(labels) == 0 {
		return
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(k)
		sb.WriteString("=\"")
		sb.WriteString(escapeLabelValue(labels[k]))
		sb.WriteString("\"")
	}
	sb.WriteString("}")
}

func escapeLabelValue(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func cloneLabels(labels map[string]string) map[string]string {
	result := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		result[k] = v
	}
	return result
}
