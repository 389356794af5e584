package observability

import (
	"context"
	"fmt"
	"time"

	"fairhire/internal/config"
	"fairhire/internal/fairness"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the fairhire instruments. The zero value records nothing, so
// callers never need to check whether observability is enabled.
type Metrics struct {
	settings config.CustomMetricsConfig

	// Audit metrics
	AuditsTotal     metric.Int64Counter
	BiasDetected    metric.Int64Counter
	FairnessScore   metric.Float64Histogram
	ViolationsTotal metric.Int64Counter

	// Narrative metrics
	NarrativeDuration metric.Float64Histogram
	NarrativeRequests metric.Int64Counter
	NarrativeErrors   metric.Int64Counter
	NarrativeTokens   metric.Int64Histogram

	// Infrastructure metrics
	RateLimitHits   metric.Int64Counter
	StoreOperations metric.Int64Counter
	EventsPublished metric.Int64Counter
	ProfileReloads  metric.Int64Counter
}

// TokenUsage is the token count of one narrative request
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// NarrativeResult is what a tracked narrative call reports back
type NarrativeResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// NewMetrics creates every instrument on meter
func NewMetrics(meter metric.Meter, settings config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{settings: settings}
	for _, create := range []func(metric.Meter) error{
		m.createAuditMetrics,
		m.createNarrativeMetrics,
		m.createInfrastructureMetrics,
	} {
		if err := create(meter); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) createAuditMetrics(meter metric.Meter) error {
	var err error

	m.AuditsTotal, err = meter.Int64Counter(
		"fairhire_audits_total",
		metric.WithDescription("Total number of fairness analyses run, by operation"),
	)
	if err != nil {
		return fmt.Errorf("failed to create audits metric: %w", err)
	}

	m.BiasDetected, err = meter.Int64Counter(
		"fairhire_bias_detected_total",
		metric.WithDescription("Attribute analyses that detected bias"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bias detected metric: %w", err)
	}

	m.FairnessScore, err = meter.Float64Histogram(
		"fairhire_fairness_score",
		metric.WithDescription("Fairness score of successful attribute analyses"),
		metric.WithExplicitBucketBoundaries(50, 60, 70, 80, 90, 100),
	)
	if err != nil {
		return fmt.Errorf("failed to create fairness score metric: %w", err)
	}

	m.ViolationsTotal, err = meter.Int64Counter(
		"fairhire_violations_total",
		metric.WithDescription("Fairness violations raised, by kind and severity"),
	)
	if err != nil {
		return fmt.Errorf("failed to create violations metric: %w", err)
	}
	return nil
}

func (m *Metrics) createNarrativeMetrics(meter metric.Meter) error {
	var err error

	m.NarrativeDuration, err = meter.Float64Histogram(
		"fairhire_narrative_duration_seconds",
		metric.WithDescription("Time spent generating audit narratives"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create narrative duration metric: %w", err)
	}

	m.NarrativeRequests, err = meter.Int64Counter(
		"fairhire_narrative_requests_total",
		metric.WithDescription("Total number of narrative requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create narrative request metric: %w", err)
	}

	m.NarrativeErrors, err = meter.Int64Counter(
		"fairhire_narrative_errors_total",
		metric.WithDescription("Total number of failed narrative requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create narrative error metric: %w", err)
	}

	m.NarrativeTokens, err = meter.Int64Histogram(
		"fairhire_narrative_tokens",
		metric.WithDescription("Token usage of narrative requests (input, output, total)"),
		metric.WithUnit("tokens"),
	)
	if err != nil {
		return fmt.Errorf("failed to create narrative token metric: %w", err)
	}
	return nil
}

func (m *Metrics) createInfrastructureMetrics(meter metric.Meter) error {
	var err error

	m.RateLimitHits, err = meter.Int64Counter(
		"fairhire_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limited requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit metric: %w", err)
	}

	m.StoreOperations, err = meter.Int64Counter(
		"fairhire_store_operations_total",
		metric.WithDescription("Report store operations, by operation and result"),
	)
	if err != nil {
		return fmt.Errorf("failed to create store metric: %w", err)
	}

	m.EventsPublished, err = meter.Int64Counter(
		"fairhire_events_published_total",
		metric.WithDescription("Audit events handed to the publisher, by result"),
	)
	if err != nil {
		return fmt.Errorf("failed to create events metric: %w", err)
	}

	m.ProfileReloads, err = meter.Int64Counter(
		"fairhire_profile_reloads_total",
		metric.WithDescription("Threshold profile reload attempts, by result"),
	)
	if err != nil {
		return fmt.Errorf("failed to create profile reload metric: %w", err)
	}
	return nil
}

// RecordOutcome records one attribute analysis run by operation
func (m *Metrics) RecordOutcome(ctx context.Context, operation, attr string, outcome fairness.Outcome) {
	if m == nil || m.AuditsTotal == nil || !m.settings.Audits.Enabled {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("attribute", attr),
		attribute.Bool("success", outcome.OK()),
	}
	if !outcome.OK() {
		attrs = append(attrs, attribute.String("error_kind", string(outcome.ErrorKind)))
	}
	m.AuditsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if !outcome.OK() {
		return
	}
	m.RecordReport(ctx, outcome.Report)
}

// RecordReport records the score, bias flag and violations of a report
func (m *Metrics) RecordReport(ctx context.Context, report *fairness.FairnessReport) {
	if m == nil || m.BiasDetected == nil || report == nil || !m.settings.Audits.Enabled {
		return
	}
	attr := attribute.String("attribute", report.Summary.ProtectedAttribute)

	if report.Summary.BiasDetected {
		m.BiasDetected.Add(ctx, 1, metric.WithAttributes(attr,
			attribute.String("severity", string(report.Summary.OverallSeverity))))
	}
	if m.settings.Audits.TrackScores {
		m.FairnessScore.Record(ctx, report.Summary.FairnessScore, metric.WithAttributes(attr,
			attribute.String("badge", report.Summary.FairnessBadge.Level)))
	}
	if m.settings.Audits.TrackViolations {
		for _, v := range report.BiasAnalysis.Violations {
			m.ViolationsTotal.Add(ctx, 1, metric.WithAttributes(attr,
				attribute.String("kind", string(v.Kind)),
				attribute.String("severity", string(v.Severity))))
		}
	}
}

// TrackNarrative instruments a narrative call with a span, duration, and token usage
func (m *Metrics) TrackNarrative(ctx context.Context, operation string, fn func(context.Context) *NarrativeResult) error {
	ctx, span := otel.Tracer("fairhire.narrative").Start(ctx, "narrative."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if m != nil && m.NarrativeRequests != nil && m.settings.Narrative.Enabled {
		attrs := []attribute.KeyValue{
			attribute.String("operation", operation),
			attribute.Bool("success", err == nil),
		}
		if m.settings.Narrative.TrackDuration {
			m.NarrativeDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
		}
		m.NarrativeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
		if err != nil {
			m.NarrativeErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		if result != nil && result.TokenUsage != nil && m.settings.Narrative.TrackTokenUsage {
			m.recordTokens(ctx, operation, result.TokenUsage)
		}
		span.SetAttributes(attrs...)
	}

	if result != nil && result.TokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", result.TokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", result.TokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", result.TokenUsage.TotalTokens),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	return err
}

func (m *Metrics) recordTokens(ctx context.Context, operation string, usage *TokenUsage) {
	for _, tt := range []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	} {
		m.NarrativeTokens.Record(ctx, tt.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordRateLimitHit counts a rejected request; limiter is "ip" or "api_key"
func (m *Metrics) RecordRateLimitHit(ctx context.Context, limiter string) {
	if !m.infrastructure() || !m.settings.Infrastructure.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limiter", limiter)))
}

// RecordStoreOperation counts a report store call
func (m *Metrics) RecordStoreOperation(ctx context.Context, operation, backend string, err error) {
	if !m.infrastructure() || !m.settings.Infrastructure.TrackStore {
		return
	}
	m.StoreOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("backend", backend),
		attribute.Bool("success", err == nil),
	))
}

// RecordEventPublish counts an audit event publish attempt
func (m *Metrics) RecordEventPublish(ctx context.Context, err error) {
	if !m.infrastructure() {
		return
	}
	m.EventsPublished.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
}

// RecordProfileReload counts a threshold profile reload attempt
func (m *Metrics) RecordProfileReload(ctx context.Context, err error) {
	if !m.infrastructure() {
		return
	}
	m.ProfileReloads.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", err == nil)))
}

func (m *Metrics) infrastructure() bool {
	return m != nil && m.RateLimitHits != nil && m.settings.Infrastructure.Enabled
}
