package ante

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/burugo/ante"

// MetricsSink counts cache events by type on an OpenTelemetry counter.
type MetricsSink struct {
	events metric.Int64Counter
}

// NewMetricsSink creates the counter on provider, or on the global provider
// when provider is nil.
func NewMetricsSink(provider metric.MeterProvider) (*MetricsSink, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	counter, err := provider.Meter(meterName).Int64Counter(
		"ante.cache.events",
		metric.WithDescription("Cache operations by outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache event counter: %w", err)
	}
	return &MetricsSink{events: counter}, nil
}

func (s *MetricsSink) Record(ctx context.Context, ev CacheEvent) {
	// No companyId attribute: tenant cardinality is unbounded.
	s.events.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(ev.Type))))
}
