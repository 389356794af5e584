package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"fairhire/internal/config"
	"fairhire/internal/fairness"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T, settings config.CustomMetricsConfig) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"), settings)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			out[md.Name] = md.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func biasedOutcome(t *testing.T) fairness.Outcome {
	t.Helper()
	b := fairness.NewReportBuilder(fairness.DefaultThresholds(),
		fairness.WithClock(func() time.Time { return time.Unix(0, 0) }))
	report, err := b.Evaluate(
		[]int{1, 1, 1, 1, 0, 1, 0, 0, 0, 0},
		[]int{1, 1, 1, 1, 0, 1, 0, 0, 0, 0},
		[]string{"m", "m", "m", "m", "m", "f", "f", "f", "f", "f"},
		1, "gender")
	require.NoError(t, err)
	require.True(t, report.Summary.BiasDetected)
	return fairness.Outcome{Report: report, BiasDetected: true}
}

func TestRecordOutcome(t *testing.T) {
	m, reader := newTestMetrics(t, allCustomMetrics())
	ctx := context.Background()

	outcome := biasedOutcome(t)
	m.RecordOutcome(ctx, "analyze", "gender", outcome)
	m.RecordOutcome(ctx, "audit", "age_group", fairness.Outcome{Error: "No data provided", ErrorKind: fairness.ErrorEmptyDataset})

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["fairhire_audits_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["fairhire_bias_detected_total"]))
	assert.Equal(t, int64(outcome.Report.Summary.TotalViolations), sumOf(t, data["fairhire_violations_total"]))

	hist, ok := data["fairhire_fairness_score"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, outcome.Report.Summary.FairnessScore, hist.DataPoints[0].Sum, 1e-9)
}

func TestRecordOutcomeRespectsSettings(t *testing.T) {
	settings := allCustomMetrics()
	settings.Audits.TrackScores = false
	settings.Audits.TrackViolations = false
	m, reader := newTestMetrics(t, settings)

	m.RecordOutcome(context.Background(), "analyze", "gender", biasedOutcome(t))

	data := collect(t, reader)
	assert.Equal(t, int64(1), sumOf(t, data["fairhire_audits_total"]))
	assert.NotContains(t, data, "fairhire_fairness_score")
	assert.NotContains(t, data, "fairhire_violations_total")
}

func TestTrackNarrative(t *testing.T) {
	m, reader := newTestMetrics(t, allCustomMetrics())
	ctx := context.Background()

	err := m.TrackNarrative(ctx, "summarize", func(context.Context) *NarrativeResult {
		return &NarrativeResult{TokenUsage: &TokenUsage{InputTokens: 100, OutputTokens: 40, TotalTokens: 140}}
	})
	require.NoError(t, err)

	cause := errors.New("quota exceeded")
	err = m.TrackNarrative(ctx, "summarize", func(context.Context) *NarrativeResult {
		return &NarrativeResult{Error: cause}
	})
	assert.ErrorIs(t, err, cause)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["fairhire_narrative_requests_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["fairhire_narrative_errors_total"]))

	tokens, ok := data["fairhire_narrative_tokens"].(metricdata.Histogram[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range tokens.DataPoints {
		total += dp.Sum
	}
	assert.Equal(t, int64(280), total)
}

func TestInfrastructureMetrics(t *testing.T) {
	m, reader := newTestMetrics(t, allCustomMetrics())
	ctx := context.Background()

	m.RecordRateLimitHit(ctx, "ip")
	m.RecordStoreOperation(ctx, "save", "memory", nil)
	m.RecordStoreOperation(ctx, "get", "redis", errors.New("down"))
	m.RecordEventPublish(ctx, nil)
	m.RecordProfileReload(ctx, errors.New("invalid"))

	data := collect(t, reader)
	assert.Equal(t, int64(1), sumOf(t, data["fairhire_rate_limit_hits_total"]))
	assert.Equal(t, int64(2), sumOf(t, data["fairhire_store_operations_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["fairhire_events_published_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["fairhire_profile_reloads_total"]))
}

func TestZeroMetricsRecordNothing(t *testing.T) {
	ctx := context.Background()
	for _, m := range []*Metrics{nil, {}} {
		assert.NotPanics(t, func() {
			m.RecordOutcome(ctx, "analyze", "gender", fairness.Outcome{})
			m.RecordReport(ctx, nil)
			m.RecordRateLimitHit(ctx, "ip")
			m.RecordStoreOperation(ctx, "save", "memory", nil)
			m.RecordEventPublish(ctx, nil)
			m.RecordProfileReload(ctx, nil)
		})
		err := m.TrackNarrative(ctx, "summarize", func(context.Context) *NarrativeResult { return nil })
		assert.NoError(t, err)
	}
}

func TestDisabledManager(t *testing.T) {
	m, err := NewManager(Config{ServiceName: "fairhire"}, nil)
	require.NoError(t, err)

	assert.NotNil(t, m.Metrics())
	assert.NotNil(t, m.Tracer("test"))
	assert.NoError(t, m.Shutdown(context.Background()))

	var nilManager *Manager
	assert.NotNil(t, nilManager.Metrics())
	assert.NoError(t, nilManager.Shutdown(context.Background()))
}

func TestEnabledManagerWithoutExporters(t *testing.T) {
	m, err := NewManager(Config{
		ServiceName:        "fairhire-test",
		ServiceVersion:     "test",
		Enabled:            true,
		SampleRate:         1,
		CollectionInterval: time.Second,
		CustomMetrics:      allCustomMetrics(),
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, m.Metrics().AuditsTotal)
	assert.NoError(t, m.Shutdown(context.Background()))
}

func TestFromConfig(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		c := FromConfig(nil, "1.2.3")
		assert.Equal(t, "fairhire", c.ServiceName)
		assert.Equal(t, "1.2.3", c.ServiceVersion)
		assert.True(t, c.CustomMetrics.Audits.Enabled)
		assert.Equal(t, "/metrics", c.Prometheus.Endpoint)
	})

	t.Run("version fallback and tighter tracing rate", func(t *testing.T) {
		cfg := &config.Config{Observability: config.ObservabilityConfig{
			Enabled:     true,
			ServiceName: "svc",
			SampleRate:  1,
			Tracing:     config.TracingConfig{SampleRate: 0.25},
		}}
		c := FromConfig(cfg, "v9")
		assert.Equal(t, "v9", c.ServiceVersion)
		assert.Equal(t, 0.25, c.SampleRate)
		assert.Equal(t, 15*time.Second, c.CollectionInterval)
	})
}
