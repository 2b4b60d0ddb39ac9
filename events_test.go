package ante_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/burugo/ante"
	"github.com/burugo/ante/drivers/cache/memory"
)

func TestLogSink_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := ante.NewLogSink(logger)
	ctx := context.Background()

	sink.Record(ctx, ante.CacheEvent{Type: ante.EventHit, Key: "query:16:x", CompanyID: "16"})
	assert.Empty(t, buf.String(), "hits are debug level")

	sink.Record(ctx, ante.CacheEvent{Type: ante.EventInvalidate, Key: "query:16:*", CompanyID: "16", Metadata: map[string]any{"count": 3}})
	sink.Record(ctx, ante.CacheEvent{Type: ante.EventError, Key: "query:16:x", Metadata: map[string]any{"op": "get"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "cache INVALIDATE", first["msg"])
	assert.Equal(t, "cache", first["component"])
	assert.Equal(t, "16", first["companyId"])
	assert.Equal(t, float64(3), first["count"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "WARN", second["level"])
	assert.Equal(t, "get", second["op"])
	assert.NotContains(t, second, "companyId")
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	var fn int
	sink := ante.MultiSink{a, nil, b, ante.EventSinkFunc(func(context.Context, ante.CacheEvent) { fn++ })}

	sink.Record(context.Background(), ante.CacheEvent{Type: ante.EventSet})
	assert.Len(t, a.ofType(ante.EventSet), 1)
	assert.Len(t, b.ofType(ante.EventSet), 1)
	assert.Equal(t, 1, fn)
}

func TestMetricsSink_CountsByType(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	sink, err := ante.NewMetricsSink(provider)
	require.NoError(t, err)

	client := memory.NewClient(nil)
	defer client.Close()
	c, err := ante.New(client, ante.DefaultConfig(), ante.WithEventSink(sink))
	require.NoError(t, err)

	key := ante.NewKey(ante.PrefixConfig).OfType("timezone")
	var dest string
	_, err = c.Get(ctx, "16", key, &dest, ante.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "16", key, "UTC", ante.DefaultOptions()))
	_, err = c.Get(ctx, "16", key, &dest, ante.DefaultOptions())
	require.NoError(t, err)
	_, err = c.Get(ctx, "17", key, &dest, ante.DefaultOptions())
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "ante.cache.events" {
				continue
			}
			data := m.Data.(metricdata.Sum[int64])
			for _, dp := range data.DataPoints {
				v, ok := dp.Attributes.Value(attribute.Key("type"))
				require.True(t, ok)
				counts[v.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"MISS": 2, "SET": 1, "HIT": 1}, counts)
}
