package fairness

import (
	"errors"
	"fmt"
	"time"

	"fairhire/internal/dataset"

	"github.com/google/uuid"
)

// ErrorKind classifies a failed attribute analysis.
type ErrorKind string

const (
	ErrorEmptyDataset  ErrorKind = "empty_dataset"
	ErrorMissingColumn ErrorKind = "missing_column"
	ErrorInvalidValue  ErrorKind = "invalid_value"
	ErrorShapeMismatch ErrorKind = "shape_mismatch"
)

// NoDataMessage is the error text of an analysis over zero rows.
const NoDataMessage = "No data provided"

// AnalysisError is the failure variant of an Outcome.
type AnalysisError struct {
	Kind    ErrorKind
	Message string
	Column  string
}

func (e *AnalysisError) Error() string {
	return e.Message
}

// Label sources recorded in a report summary.
const (
	LabelSourceGroundTruth = "ground_truth"
	LabelSourceDecisions   = "decisions"
)

// ReducedConfidenceCaveat explains why label-based metrics are tautological.
const ReducedConfidenceCaveat = "REDUCED CONFIDENCE: no ground truth was supplied, so decisions were used as labels. " +
	"True and false positive rates, equal opportunity and equalized odds cannot detect bias in this mode; " +
	"only selection-rate metrics (demographic parity, disparate impact, Theil index) are meaningful."

// DefaultProtectedAttributes are audited when a request names none.
var DefaultProtectedAttributes = []string{"gender", "age_group", "ethnicity"}

// Summary is the headline section of a fairness report.
type Summary struct {
	TotalCount         int      `json:"total_count"`
	ProtectedAttribute string   `json:"protected_attribute"`
	GroupsAnalyzed     []string `json:"groups_analyzed"`
	FairnessScore      float64  `json:"fairness_score"`
	FairnessBadge      Badge    `json:"fairness_badge"`
	BiasDetected       bool     `json:"bias_detected"`
	OverallSeverity    Severity `json:"overall_severity"`
	TotalViolations    int      `json:"total_violations"`
	LabelSource        string   `json:"label_source"`
	ReducedConfidence  bool     `json:"reduced_confidence"`
}

// FairnessReport is the immutable result of analyzing one protected attribute.
type FairnessReport struct {
	Summary         Summary                    `json:"summary"`
	GroupStatistics map[string]GroupStatistics `json:"group_statistics"`
	FairnessMetrics MetricSet                  `json:"fairness_metrics"`
	BiasAnalysis    BiasAnalysis               `json:"bias_analysis"`
	Recommendations []string                   `json:"recommendations"`
	Caveats         []string                   `json:"caveats,omitempty"`
	Timestamp       time.Time                  `json:"timestamp"`
}

// Outcome is either a report or a typed failure, never both.
type Outcome struct {
	Report       *FairnessReport `json:"report,omitempty"`
	Error        string          `json:"error,omitempty"`
	ErrorKind    ErrorKind       `json:"error_kind,omitempty"`
	Column       string          `json:"column,omitempty"`
	BiasDetected bool            `json:"bias_detected"`
}

// OK reports whether the outcome carries a report.
func (o Outcome) OK() bool {
	return o.Report != nil && o.ErrorKind == ""
}

// Err returns the failure as an *AnalysisError, or nil on success.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	return &AnalysisError{Kind: o.ErrorKind, Message: o.Error, Column: o.Column}
}

func succeeded(r *FairnessReport) Outcome {
	return Outcome{Report: r, BiasDetected: r.Summary.BiasDetected}
}

func failed(err *AnalysisError) Outcome {
	return Outcome{Error: err.Message, ErrorKind: err.Kind, Column: err.Column}
}

// Columns names the dataset columns an analysis reads.
type Columns struct {
	Decision    string
	GroundTruth string
	// RequireGroundTruth turns an absent ground-truth column into an error
	// instead of falling back to decisions.
	RequireGroundTruth bool
	Favorable          int
}

// DefaultColumns reads decision and ground_truth with favorable outcome 1.
func DefaultColumns() Columns {
	return Columns{
		Decision:    dataset.ColumnDecision,
		GroundTruth: dataset.ColumnGroundTruth,
		Favorable:   1,
	}
}

// AuditRequest selects what a multi-attribute audit covers.
type AuditRequest struct {
	JobID      string
	Attributes []string
	Columns    Columns
}

// AuditReport binds one job to the analyses of each protected attribute.
type AuditReport struct {
	AuditID                string             `json:"audit_id"`
	JobID                  string             `json:"job_id"`
	AuditDate              time.Time          `json:"audit_date"`
	TotalApplications      int                `json:"total_applications"`
	Attributes             []string           `json:"attributes"`
	Analyses               map[string]Outcome `json:"analyses"`
	SkippedAttributes      []string           `json:"skipped_attributes,omitempty"`
	OverallBiasDetected    bool               `json:"overall_bias_detected"`
	SummaryRecommendations []string           `json:"summary_recommendations"`
	Narrative              string             `json:"narrative,omitempty"`
}

var (
	biasSummaryRecommendations = []string{
		"Implement blind resume screening to remove identifiable information",
		"Use structured interviews with standardized questions",
		"Diversify the interview panel",
		"Set diversity hiring goals and track progress",
		"Run regular fairness audits",
		"Train recruiters on unconscious bias",
	}
	fairSummaryRecommendations = []string{
		"Continue monitoring hiring outcomes for fairness",
		"Maintain current fair hiring practices",
		"Conduct periodic fairness audits",
	}
)

// BuilderOption configures a ReportBuilder.
type BuilderOption func(*ReportBuilder)

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *ReportBuilder) { b.now = now }
}

// WithIDGenerator replaces the audit id source.
func WithIDGenerator(newID func() string) BuilderOption {
	return func(b *ReportBuilder) { b.newID = newID }
}

// ReportBuilder runs the statistics, metrics, detection and scoring pipeline.
// It holds no per-call state and is safe for concurrent use.
type ReportBuilder struct {
	detector *Detector
	scorer   *Scorer
	now      func() time.Time
	newID    func() string
}

// NewReportBuilder builds a report builder around one threshold policy.
func NewReportBuilder(th Thresholds, opts ...BuilderOption) *ReportBuilder {
	b := &ReportBuilder{
		detector: NewDetector(th),
		scorer:   NewScorer(th),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Thresholds returns the policy the builder applies.
func (b *ReportBuilder) Thresholds() Thresholds {
	return b.detector.Thresholds()
}

// Evaluate runs the pipeline on parallel arrays. A nil labels slice means no
// ground truth is available and decisions are used in its place. Zero
// observations give ErrEmptyDataset.
func (b *ReportBuilder) Evaluate(predictions, labels []int, groups []string, favorable int, attribute string) (*FairnessReport, error) {
	source := LabelSourceGroundTruth
	if labels == nil {
		labels = predictions
		source = LabelSourceDecisions
	}

	stats, err := ComputeGroupStatistics(predictions, labels, groups, favorable)
	if err != nil {
		return nil, err
	}
	if len(predictions) == 0 {
		return nil, ErrEmptyDataset
	}
	return b.assemble(stats, len(predictions), attribute, source), nil
}

func (b *ReportBuilder) assemble(stats map[string]GroupStatistics, total int, attribute, labelSource string) *FairnessReport {
	metrics := ComputeMetrics(stats)
	analysis := b.detector.Detect(metrics)
	score := b.scorer.Score(metrics)

	rounded := make(map[string]GroupStatistics, len(stats))
	for g, s := range stats {
		rounded[g] = s.Rounded()
	}

	report := &FairnessReport{
		Summary: Summary{
			TotalCount:         total,
			ProtectedAttribute: attribute,
			GroupsAnalyzed:     SortedGroups(stats),
			FairnessScore:      score,
			FairnessBadge:      BadgeFor(score),
			BiasDetected:       analysis.BiasDetected,
			OverallSeverity:    analysis.OverallSeverity,
			TotalViolations:    analysis.TotalViolations,
			LabelSource:        labelSource,
			ReducedConfidence:  labelSource == LabelSourceDecisions,
		},
		GroupStatistics: rounded,
		FairnessMetrics: metrics,
		BiasAnalysis:    analysis,
		Recommendations: Recommendations(analysis),
		Timestamp:       b.now().UTC(),
	}
	if report.Summary.ReducedConfidence {
		report.Caveats = []string{ReducedConfidenceCaveat}
	}
	return report
}

// AnalyzeAttribute analyzes one protected attribute of a dataset.
// Failures are returned in the Outcome rather than as an error.
func (b *ReportBuilder) AnalyzeAttribute(ds *dataset.Table, attribute string, cols Columns) Outcome {
	if ds.Len() == 0 {
		return failed(&AnalysisError{Kind: ErrorEmptyDataset, Message: NoDataMessage})
	}
	if cols.Decision == "" {
		cols.Decision = dataset.ColumnDecision
	}
	for _, col := range []string{attribute, cols.Decision} {
		if !ds.HasColumn(col) {
			return failed(missingColumn(col))
		}
	}

	predictions, err := ds.Ints(cols.Decision)
	if err != nil {
		return failed(invalidValue(err))
	}

	var labels []int
	switch {
	case cols.GroundTruth != "" && ds.HasColumn(cols.GroundTruth):
		if labels, err = ds.Ints(cols.GroundTruth); err != nil {
			return failed(invalidValue(err))
		}
	case cols.RequireGroundTruth:
		name := cols.GroundTruth
		if name == "" {
			name = dataset.ColumnGroundTruth
		}
		return failed(missingColumn(name))
	}

	report, err := b.Evaluate(predictions, labels, ds.Strings(attribute), cols.Favorable, attribute)
	if err != nil {
		return failed(&AnalysisError{Kind: ErrorShapeMismatch, Message: err.Error()})
	}
	return succeeded(report)
}

// Audit analyzes every requested attribute present in the dataset independently.
func (b *ReportBuilder) Audit(ds *dataset.Table, req AuditRequest) *AuditReport {
	attrs := req.Attributes
	if len(attrs) == 0 {
		attrs = DefaultProtectedAttributes
	}

	report := &AuditReport{
		AuditID:           b.newID(),
		JobID:             req.JobID,
		AuditDate:         b.now().UTC(),
		TotalApplications: ds.Len(),
		Attributes:        []string{},
		Analyses:          make(map[string]Outcome),
	}

	seen := make(map[string]bool, len(attrs))
	for _, attr := range attrs {
		if seen[attr] {
			continue
		}
		seen[attr] = true
		if ds.Len() > 0 && !ds.HasColumn(attr) {
			report.SkippedAttributes = append(report.SkippedAttributes, attr)
			continue
		}
		outcome := b.AnalyzeAttribute(ds, attr, req.Columns)
		report.Attributes = append(report.Attributes, attr)
		report.Analyses[attr] = outcome
		if outcome.BiasDetected {
			report.OverallBiasDetected = true
		}
	}

	if report.OverallBiasDetected {
		report.SummaryRecommendations = append([]string(nil), biasSummaryRecommendations...)
	} else {
		report.SummaryRecommendations = append([]string(nil), fairSummaryRecommendations...)
	}
	return report
}

func missingColumn(col string) *AnalysisError {
	return &AnalysisError{
		Kind:    ErrorMissingColumn,
		Message: fmt.Sprintf("Column %q not found in data", col),
		Column:  col,
	}
}

func invalidValue(err error) *AnalysisError {
	ae := &AnalysisError{Kind: ErrorInvalidValue, Message: err.Error()}
	var ve *dataset.ValueError
	if errors.As(err, &ve) {
		ae.Column = ve.Column
	}
	return ae
}
