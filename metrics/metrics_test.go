package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNilInstrumentsAreNoop(t *testing.T) {
	var g *Int64SyncGauge
	g.Set(1)
	_, ok := g.Get()
	assert.False(t, ok)
}

func TestInitializeMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	require.NoError(t, InitializeMetrics())

	attrs := []attribute.KeyValue{AttributeKeySource.String("Betanet"), AttributeKeyTarget.String("Wococo"), AttributeKeyAt.String("target")}
	FinalityBestBlockGauge.Set(42, attrs...)
	v, ok := FinalityBestBlockGauge.Get(attrs...)
	require.True(t, ok)
	assert.Equal(t, int64(42), v)
	SubmittedHeadersCounter.Add(context.Background(), 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["relayer.finality.best_block_number"])
	assert.True(t, names["relayer.finality.submitted_headers"])
}
