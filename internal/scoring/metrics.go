package scoring

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/cl0udz1/cyber-guard-platfrom/internal/scoring"

type engineMetrics struct {
	verdicts       metric.Int64Counter
	cacheHits      metric.Int64Counter
	sourceFailures metric.Int64Counter
	sourceLatency  metric.Float64Histogram
}

func newEngineMetrics(mp metric.MeterProvider) engineMetrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	// Instrument errors only occur for invalid names; the API then hands
	// back a no-op instrument, so they are ignored.
	verdicts, _ := meter.Int64Counter("cyberguard_scoring_verdicts_total",
		metric.WithDescription("Verdicts produced, by status."))
	cacheHits, _ := meter.Int64Counter("cyberguard_scoring_cache_hits_total",
		metric.WithDescription("Verdicts served from the result cache."))
	failures, _ := meter.Int64Counter("cyberguard_scoring_source_failures_total",
		metric.WithDescription("Scoring source calls that failed after retry."))
	latency, _ := meter.Float64Histogram("cyberguard_scoring_source_duration_seconds",
		metric.WithDescription("Scoring source call duration, retries included."),
		metric.WithUnit("s"))

	return engineMetrics{
		verdicts:       verdicts,
		cacheHits:      cacheHits,
		sourceFailures: failures,
		sourceLatency:  latency,
	}
}

func (m engineMetrics) recordVerdict(ctx context.Context, v Verdict) {
	m.verdicts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(v.Status)),
		attribute.Bool("degraded", v.Degraded),
	))
}

func (m engineMetrics) recordSource(ctx context.Context, source string, started time.Time, failed bool) {
	attrs := metric.WithAttributes(attribute.String("source", source))
	m.sourceLatency.Record(ctx, time.Since(started).Seconds(), attrs)
	if failed {
		m.sourceFailures.Add(ctx, 1, attrs)
	}
}
