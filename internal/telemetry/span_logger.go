package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/straja-ai/prerouter/internal/tracelog"
)

// SpanLogger turns trace records into short spans and counters.
type SpanLogger struct {
	p *Provider
}

// NewSpanLogger returns a tracelog.Logger backed by p.
func NewSpanLogger(p *Provider) *SpanLogger {
	if p == nil {
		p = newNoopProvider()
	}
	return &SpanLogger{p: p}
}

func (l *SpanLogger) Log(rec tracelog.Record) {
	ctx := context.Background()
	stage := attribute.String("prerouter.stage", rec.Stage)

	opts := []trace.SpanStartOption{trace.WithAttributes(stage)}
	if !rec.Timestamp.IsZero() {
		opts = append(opts, trace.WithTimestamp(rec.Timestamp))
	}
	_, span := l.p.tracer.Start(ctx, rec.Stage, opts...)
	span.SetAttributes(SafeAttributes(rec.Fields)...)
	span.End()

	l.p.recordsCounter.Add(ctx, 1, metric.WithAttributes(stage))
	if hit, ok := rec.Value("policy_keyword_hit"); ok && hit == true {
		l.p.policyHitsCounter.Add(ctx, 1)
	}
}
