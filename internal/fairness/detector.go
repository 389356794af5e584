package fairness

import "fmt"

// Severity grades a single violation or a whole analysis.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ViolationKind identifies the fairness criterion a violation belongs to.
type ViolationKind string

const (
	KindDemographicParity ViolationKind = "demographic_parity"
	KindDisparateImpact   ViolationKind = "disparate_impact"
	KindEqualOpportunity  ViolationKind = "equal_opportunity"
	KindEqualizedOdds     ViolationKind = "equalized_odds"
	KindFalsePositiveRate ViolationKind = "false_positive_rate_parity"
)

// Violation records one metric crossing its threshold.
type Violation struct {
	Kind        ViolationKind `json:"kind"`
	Metric      string        `json:"metric"`
	Value       float64       `json:"value"`
	Threshold   float64       `json:"threshold"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
}

// BiasAnalysis is the detector's verdict over one metric set.
type BiasAnalysis struct {
	BiasDetected    bool        `json:"bias_detected"`
	OverallSeverity Severity    `json:"overall_severity"`
	SeverityScore   int         `json:"severity_score"`
	Violations      []Violation `json:"violations"`
	TotalViolations int         `json:"total_violations"`
}

// Has reports whether a violation of the given kind fired.
func (b BiasAnalysis) Has(kind ViolationKind) bool {
	for _, v := range b.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

// Detector thresholds a metric set into violations.
type Detector struct {
	th Thresholds
}

// NewDetector returns a detector bound to a copy of th.
func NewDetector(th Thresholds) *Detector {
	return &Detector{th: th}
}

// Thresholds returns the policy the detector was built with.
func (d *Detector) Thresholds() Thresholds {
	return d.th
}

// Detect classifies the metric set.
func (d *Detector) Detect(m MetricSet) BiasAnalysis {
	th := d.th
	w := th.Weights

	analysis := BiasAnalysis{Violations: []Violation{}}
	add := func(v Violation, weight int, flags bool) {
		analysis.Violations = append(analysis.Violations, v)
		analysis.SeverityScore += weight
		if flags {
			analysis.BiasDetected = true
		}
	}

	if dpd := m.DemographicParityDifference; dpd > th.DemographicParityDifference {
		sev, weight := SeverityMedium, w.DemographicParityMedium
		if dpd > th.DemographicParityHigh {
			sev, weight = SeverityHigh, w.DemographicParityHigh
		}
		add(Violation{
			Kind:        KindDemographicParity,
			Metric:      "Demographic Parity",
			Value:       dpd,
			Threshold:   th.DemographicParityDifference,
			Severity:    sev,
			Description: fmt.Sprintf("Selection rates differ by %.1f%% across groups", dpd*100),
		}, weight, true)
	}

	if ratio := m.DemographicParityRatio; ratio < th.DisparateImpactRatio {
		sev, weight := SeverityMedium, w.DisparateImpactMedium
		if ratio < th.DisparateImpactHigh {
			sev, weight = SeverityHigh, w.DisparateImpactHigh
		}
		add(Violation{
			Kind:        KindDisparateImpact,
			Metric:      "Disparate Impact (80% Rule)",
			Value:       ratio,
			Threshold:   th.DisparateImpactRatio,
			Severity:    sev,
			Description: fmt.Sprintf("Selection rate ratio is %.2f, below the %.0f%% threshold", ratio, th.DisparateImpactRatio*100),
		}, weight, true)
	}

	if eod := m.EqualOpportunityDifference; eod > th.EqualOpportunityDifference {
		add(Violation{
			Kind:        KindEqualOpportunity,
			Metric:      "Equal Opportunity",
			Value:       eod,
			Threshold:   th.EqualOpportunityDifference,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("True positive rates differ by %.1f%% across groups", eod*100),
		}, w.EqualOpportunity, true)
	}

	if aod := m.AverageOddsDifference; aod > th.AverageOddsDifference {
		add(Violation{
			Kind:        KindEqualizedOdds,
			Metric:      "Equalized Odds",
			Value:       aod,
			Threshold:   th.AverageOddsDifference,
			Severity:    SeverityMedium,
			Description: fmt.Sprintf("Average odds differ by %.1f%% across groups", aod*100),
		}, w.AverageOdds, true)
	}

	if fpr := m.FalsePositiveRateDifference; fpr > th.FalsePositiveRateDifference {
		add(Violation{
			Kind:        KindFalsePositiveRate,
			Metric:      "False Positive Rate Parity",
			Value:       fpr,
			Threshold:   th.FalsePositiveRateDifference,
			Severity:    SeverityLow,
			Description: fmt.Sprintf("False positive rates differ by %.1f%% across groups", fpr*100),
		}, w.FalsePositiveRate, th.FlagLowSeverity)
	}

	analysis.TotalViolations = len(analysis.Violations)
	analysis.OverallSeverity = d.band(analysis.SeverityScore)
	return analysis
}

func (d *Detector) band(score int) Severity {
	switch {
	case score >= d.th.Bands.Critical:
		return SeverityCritical
	case score >= d.th.Bands.High:
		return SeverityHigh
	case score >= d.th.Bands.Medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

var (
	parityRecommendations = []string{
		"Implement blind resume screening to reduce unconscious bias",
		"Review and revise job requirements and selection criteria for unnecessary barriers",
		"Set diversity goals for candidate pools and track progress",
		"Conduct regular fairness audits of the hiring process",
	}
	opportunityRecommendations = []string{
		"Standardize interviews with structured questions and scoring rubrics",
		"Diversify interview panels",
		"Provide unconscious bias training for everyone involved in hiring",
		"Use competency-based assessments instead of subjective judgments",
	}
	urgentRecommendations = []string{
		"URGENT: Pause current hiring and audit the full process",
		"Engage an external diversity and inclusion consultant",
		"Review organizational hiring policies and procedures",
		"Consider bias-mitigation tooling for candidate screening",
	}
	affirmationRecommendations = []string{
		"Continue current fair hiring practices",
		"Maintain regular fairness monitoring",
		"Share best practices with other teams",
		"Consider applying for a diversity and inclusion certification",
	}
)

// urgentViolationCount is the number of violations that escalates recommendations.
const urgentViolationCount = 3

// Recommendations returns the action list for an analysis, in category order.
func Recommendations(a BiasAnalysis) []string {
	if a.TotalViolations == 0 {
		return append([]string(nil), affirmationRecommendations...)
	}

	var recs []string
	if a.Has(KindDemographicParity) || a.Has(KindDisparateImpact) {
		recs = append(recs, parityRecommendations...)
	}
	if a.Has(KindEqualOpportunity) {
		recs = append(recs, opportunityRecommendations...)
	}
	if a.TotalViolations >= urgentViolationCount {
		recs = append(recs, urgentRecommendations...)
	}
	if recs == nil {
		recs = []string{}
	}
	return recs
}
