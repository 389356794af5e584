// Package audit runs fairness analyses for the CLI and HTTP transports and
// hands completed audits to the report store and the event publisher.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fairhire/internal/config"
	"fairhire/internal/dataset"
	apperrors "fairhire/internal/errors"
	"fairhire/internal/events"
	"fairhire/internal/fairness"
	"fairhire/internal/narrative"
	"fairhire/internal/observability"
	"fairhire/internal/store"
)

// Options wires a Service. Only Thresholds is required.
type Options struct {
	Thresholds     *config.ThresholdSource
	Columns        fairness.Columns
	Attributes     []string
	Store          store.Store
	StoreBackend   string
	Publisher      events.Publisher
	Narrator       narrative.Narrator
	Metrics        *observability.Metrics
	Logger         *apperrors.Logger
	BuilderOptions []fairness.BuilderOption
}

// Service is safe for concurrent use.
type Service struct {
	thresholds   *config.ThresholdSource
	columns      fairness.Columns
	attributes   []string
	store        store.Store
	storeBackend string
	publisher    events.Publisher
	narrator     narrative.Narrator
	metrics      *observability.Metrics
	logger       *apperrors.Logger
	builderOpts  []fairness.BuilderOption

	mu             sync.Mutex
	builder        *fairness.ReportBuilder
	builderVersion uint64
}

// NewService validates opts and fills the optional collaborators
func NewService(opts Options) (*Service, error) {
	if opts.Thresholds == nil {
		return nil, fmt.Errorf("threshold source is required")
	}
	if opts.Logger == nil {
		opts.Logger = apperrors.NewNopLogger()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.Metrics == nil {
		opts.Metrics = &observability.Metrics{}
	}
	switch {
	case opts.Columns == (fairness.Columns{}):
		opts.Columns = fairness.DefaultColumns()
	case opts.Columns.Decision == "":
		opts.Columns.Decision = fairness.DefaultColumns().Decision
	}
	if len(opts.Attributes) == 0 {
		opts.Attributes = fairness.DefaultProtectedAttributes
	}
	if opts.Store != nil && opts.StoreBackend == "" {
		opts.StoreBackend = "memory"
	}

	return &Service{
		thresholds:   opts.Thresholds,
		columns:      opts.Columns,
		attributes:   opts.Attributes,
		store:        opts.Store,
		storeBackend: opts.StoreBackend,
		publisher:    opts.Publisher,
		narrator:     opts.Narrator,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		builderOpts:  opts.BuilderOptions,
	}, nil
}

// reportBuilder returns a builder for the active threshold policy, rebuilding
// it only after the policy was replaced.
func (s *Service) reportBuilder() *fairness.ReportBuilder {
	version := s.thresholds.Version()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.builder == nil || s.builderVersion != version {
		s.builder = fairness.NewReportBuilder(s.thresholds.Current(), s.builderOpts...)
		s.builderVersion = version
	}
	return s.builder
}

// Thresholds returns the active threshold policy
func (s *Service) Thresholds() fairness.Thresholds {
	return s.thresholds.Current()
}

// ColumnOverrides replaces the configured column conventions for one request.
// Empty fields keep the configured value.
type ColumnOverrides struct {
	DecisionColumn    string
	GroundTruthColumn string
	FavorableLabel    *int
}

func (s *Service) resolveColumns(o ColumnOverrides) fairness.Columns {
	cols := s.columns
	if o.DecisionColumn != "" {
		cols.Decision = o.DecisionColumn
	}
	if o.GroundTruthColumn != "" {
		cols.GroundTruth = o.GroundTruthColumn
	}
	if o.FavorableLabel != nil {
		cols.Favorable = *o.FavorableLabel
	}
	return cols
}

// AnalyzeRequest analyzes one protected attribute of a dataset
type AnalyzeRequest struct {
	Dataset   *dataset.Table
	Attribute string
	ColumnOverrides
}

// Analyze returns the outcome for one attribute. Analysis failures such as a
// missing column are reported in the Outcome; only a malformed request is an error.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (fairness.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return fairness.Outcome{}, err
	}
	if req.Dataset == nil {
		return fairness.Outcome{}, apperrors.NewValidationError(apperrors.ErrCodeInvalidRequest, "Dataset is required", nil)
	}
	if req.Attribute == "" {
		return fairness.Outcome{}, apperrors.NewValidationError(apperrors.ErrCodeInvalidRequest, "Protected attribute is required", nil)
	}

	outcome := s.reportBuilder().AnalyzeAttribute(req.Dataset, req.Attribute, s.resolveColumns(req.ColumnOverrides))
	s.metrics.RecordOutcome(ctx, "analyze", req.Attribute, outcome)

	if outcome.OK() {
		s.logger.Info("Attribute analyzed",
			"attribute", req.Attribute,
			"rows", req.Dataset.Len(),
			"bias_detected", outcome.BiasDetected,
			"fairness_score", outcome.Report.Summary.FairnessScore)
	} else {
		s.logger.Warn("Attribute analysis failed",
			"attribute", req.Attribute,
			"error_kind", outcome.ErrorKind,
			"error", outcome.Error)
	}
	return outcome, nil
}

// AuditRequest audits several protected attributes for one job
type AuditRequest struct {
	Dataset    *dataset.Table
	JobID      string
	Attributes []string
	ColumnOverrides
	// Narrative asks the configured narrator for a plain-language summary
	Narrative bool
}

// AuditResult is a completed audit plus what happened to it afterwards.
// A store, publish or narrative failure never hides the report.
type AuditResult struct {
	Report         *fairness.AuditReport `json:"report"`
	Persisted      bool                  `json:"persisted"`
	Published      bool                  `json:"published"`
	NarrativeError string                `json:"narrative_error,omitempty"`
}

// Audit runs every requested attribute, then narrates, stores and publishes the report
func (s *Service) Audit(ctx context.Context, req AuditRequest) (*AuditResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Dataset == nil {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeInvalidRequest, "Dataset is required", nil)
	}

	attrs := req.Attributes
	if len(attrs) == 0 {
		attrs = s.attributes
	}

	report := s.reportBuilder().Audit(req.Dataset, fairness.AuditRequest{
		JobID:      req.JobID,
		Attributes: attrs,
		Columns:    s.resolveColumns(req.ColumnOverrides),
	})
	for _, attr := range report.Attributes {
		s.metrics.RecordOutcome(ctx, "audit", attr, report.Analyses[attr])
	}

	result := &AuditResult{Report: report}
	if req.Narrative {
		if err := s.narrate(ctx, report); err != nil {
			result.NarrativeError = err.Error()
		}
	}

	result.Persisted = s.persist(ctx, report)
	result.Published = s.publish(ctx, report)

	s.logger.Info("Audit completed",
		"audit_id", report.AuditID,
		"job_id", report.JobID,
		"applications", report.TotalApplications,
		"attributes", report.Attributes,
		"skipped", report.SkippedAttributes,
		"overall_bias_detected", report.OverallBiasDetected,
		"persisted", result.Persisted,
		"published", result.Published)
	return result, nil
}

func (s *Service) narrate(ctx context.Context, report *fairness.AuditReport) error {
	if s.narrator == nil {
		return apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig, "Narrative generation is not enabled", nil)
	}

	var n *narrative.Narrative
	err := s.metrics.TrackNarrative(ctx, "summarize_audit", func(ctx context.Context) *observability.NarrativeResult {
		var err error
		n, err = s.narrator.Summarize(ctx, report)
		res := &observability.NarrativeResult{Error: err}
		if n != nil && n.Usage != nil {
			res.TokenUsage = &observability.TokenUsage{
				InputTokens:  n.Usage.InputTokens,
				OutputTokens: n.Usage.OutputTokens,
				TotalTokens:  n.Usage.TotalTokens,
			}
		}
		return res
	})
	if err != nil {
		s.logger.LogError(err, "Audit narrative failed", "audit_id", report.AuditID)
		return err
	}
	report.Narrative = n.Text()
	return nil
}

func (s *Service) persist(ctx context.Context, report *fairness.AuditReport) bool {
	if s.store == nil {
		return false
	}
	err := s.store.Save(ctx, report)
	s.metrics.RecordStoreOperation(ctx, "save", s.storeBackend, err)
	if err != nil {
		s.logger.LogError(apperrors.NewStorageError(apperrors.ErrCodeStoreFailed, "Failed to store audit report", err),
			"Audit report not persisted", "audit_id", report.AuditID, "backend", s.storeBackend)
		return false
	}
	return true
}

func (s *Service) publish(ctx context.Context, report *fairness.AuditReport) bool {
	if _, nop := s.publisher.(events.NopPublisher); nop {
		return false
	}
	err := s.publisher.Publish(ctx, report)
	s.metrics.RecordEventPublish(ctx, err)
	if err != nil {
		s.logger.LogError(err, "Audit event not published", "audit_id", report.AuditID)
		return false
	}
	return true
}

// Get fetches a stored audit report
func (s *Service) Get(ctx context.Context, auditID string) (*fairness.AuditReport, error) {
	if auditID == "" {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeInvalidRequest, "Audit id is required", nil)
	}
	if s.store == nil {
		return nil, apperrors.NewStorageError(apperrors.ErrCodeReportNotFound, "Report storage is not configured", nil).
			WithContext("audit_id", auditID)
	}

	report, err := s.store.Get(ctx, auditID)
	s.metrics.RecordStoreOperation(ctx, "get", s.storeBackend, ignoreNotFound(err))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperrors.NewStorageError(apperrors.ErrCodeReportNotFound, "Audit report not found", err).
			WithContext("audit_id", auditID)
	case err != nil:
		return nil, apperrors.NewStorageError(apperrors.ErrCodeStoreFailed, "Failed to load audit report", err).
			WithContext("audit_id", auditID)
	}
	return report, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// EvaluateRequest runs the pipeline directly on parallel arrays.
// Nil Labels means decisions stand in for ground truth.
type EvaluateRequest struct {
	Predictions    []int
	Labels         []int
	Groups         []string
	FavorableLabel int
	Attribute      string
}

// Evaluate builds a report from arrays. Arrays of different lengths are an error.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (*fairness.FairnessReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	attr := req.Attribute
	if attr == "" {
		attr = "group"
	}

	report, err := s.reportBuilder().Evaluate(req.Predictions, req.Labels, req.Groups, req.FavorableLabel, attr)
	if errors.Is(err, fairness.ErrShapeMismatch) {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeShapeMismatch, err.Error(), err)
	}
	if errors.Is(err, fairness.ErrEmptyDataset) {
		return nil, apperrors.NewAnalysisError(apperrors.ErrCodeEmptyDataset, fairness.NoDataMessage, err)
	}
	if err != nil {
		return nil, apperrors.NewAnalysisError(apperrors.ErrCodeInvalidValue, "Evaluation failed", err)
	}
	s.metrics.RecordOutcome(ctx, "evaluate", attr, fairness.Outcome{Report: report, BiasDetected: report.Summary.BiasDetected})
	return report, nil
}

// RateMetrics is what the rate helpers compute from per-group rates
type RateMetrics struct {
	DemographicParityDifference float64                  `json:"demographic_parity_difference"`
	EqualOpportunityDifference  float64                  `json:"equal_opportunity_difference"`
	DisparateImpact             fairness.DisparateImpact `json:"disparate_impact"`
}

// Rates applies the rate helpers; missing true positive rates give a 0 span
func (s *Service) Rates(selectionRates, truePositiveRates map[string]float64) RateMetrics {
	return RateMetrics{
		DemographicParityDifference: fairness.DemographicParityFromRates(selectionRates),
		EqualOpportunityDifference:  fairness.EqualOpportunityFromRates(truePositiveRates),
		DisparateImpact:             fairness.DisparateImpactFromRates(selectionRates),
	}
}

// Stats summarizes the collaborators for the stats endpoint
func (s *Service) Stats(ctx context.Context) map[string]any {
	th := s.thresholds.Current()
	stats := map[string]any{
		"thresholds": map[string]any{
			"version":                       s.thresholds.Version(),
			"demographic_parity_difference": th.DemographicParityDifference,
			"disparate_impact_ratio":        th.DisparateImpactRatio,
			"equal_opportunity_difference":  th.EqualOpportunityDifference,
			"average_odds_difference":       th.AverageOddsDifference,
			"flag_low_severity":             th.FlagLowSeverity,
		},
		"default_attributes": s.attributes,
		"events_enabled":     s.publisherEnabled(),
	}
	if s.store != nil {
		stats["store"] = s.store.Stats(ctx)
	}
	if s.narrator != nil {
		stats["narrative"] = s.narrator.Stats()
	}
	return stats
}

// StoreStats reports the report store, or false when audits are not persisted
func (s *Service) StoreStats(ctx context.Context) (store.Stats, bool) {
	if s.store == nil {
		return store.Stats{}, false
	}
	return s.store.Stats(ctx), true
}

// NarrativeHealth checks the narrative model, or returns nil when narratives are off
func (s *Service) NarrativeHealth(ctx context.Context) *narrative.ModelInfo {
	if s.narrator == nil {
		return nil
	}
	return s.narrator.ModelInfo(ctx)
}

func (s *Service) publisherEnabled() bool {
	_, nop := s.publisher.(events.NopPublisher)
	return !nop
}

// Close releases the store, publisher and narrator, waiting at most timeout
func (s *Service) Close(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		var errs []error
		if s.store != nil {
			errs = append(errs, s.store.Close())
		}
		errs = append(errs, s.publisher.Close())
		if s.narrator != nil {
			errs = append(errs, s.narrator.Close())
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timed out closing audit service after %s", timeout)
	}
}
