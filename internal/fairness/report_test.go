package fairness

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fairhire/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestBuilder() *ReportBuilder {
	return NewReportBuilder(DefaultThresholds(),
		WithClock(func() time.Time { return fixedTime }),
		WithIDGenerator(func() string { return "audit-1" }),
	)
}

// table builds rows from observations, recording group under attr.
func table(o *observations, attr string, withGroundTruth bool) *dataset.Table {
	rows := make([]dataset.Row, len(o.predictions))
	for i := range o.predictions {
		row := dataset.Row{
			"application_id": float64(i + 1),
			"decision":       float64(o.predictions[i]),
			attr:             o.groups[i],
		}
		if withGroundTruth {
			row["ground_truth"] = float64(o.labels[i])
		}
		rows[i] = row
	}
	return dataset.New(rows)
}

func TestEvaluate_TwoGroupGap(t *testing.T) {
	o := twoGroupGap()
	r, err := newTestBuilder().Evaluate(o.predictions, o.labels, o.groups, 1, "gender")
	require.NoError(t, err)

	assert.Equal(t, 200, r.Summary.TotalCount)
	assert.Equal(t, "gender", r.Summary.ProtectedAttribute)
	assert.Equal(t, []string{"A", "B"}, r.Summary.GroupsAnalyzed)
	assert.Equal(t, 40.0, r.Summary.FairnessScore)
	assert.Equal(t, "F", r.Summary.FairnessBadge.Level)
	assert.True(t, r.Summary.BiasDetected)
	assert.Equal(t, SeverityCritical, r.Summary.OverallSeverity)
	assert.Equal(t, 2, r.Summary.TotalViolations)
	assert.Equal(t, LabelSourceGroundTruth, r.Summary.LabelSource)
	assert.False(t, r.Summary.ReducedConfidence)
	assert.Empty(t, r.Caveats)
	assert.Equal(t, fixedTime, r.Timestamp)

	assert.Equal(t, 0.8, r.GroupStatistics["A"].SelectionRate)
	assert.Equal(t, 0.4, r.GroupStatistics["B"].SelectionRate)
	assert.Equal(t, parityRecommendations, r.Recommendations)
}

func TestEvaluate_SingleGroup(t *testing.T) {
	o := new(observations).add("everyone", 30, 5, 60, 5)
	r, err := newTestBuilder().Evaluate(o.predictions, o.labels, o.groups, 1, "gender")
	require.NoError(t, err)

	assert.Equal(t, 100.0, r.Summary.FairnessScore)
	assert.Equal(t, "A+", r.Summary.FairnessBadge.Level)
	assert.False(t, r.Summary.BiasDetected)
	assert.Empty(t, r.BiasAnalysis.Violations)
	assert.Equal(t, 1.0, r.FairnessMetrics.DemographicParityRatio)
	assert.Equal(t, affirmationRecommendations, r.Recommendations)
}

func TestEvaluate_WithoutLabels(t *testing.T) {
	o := errorRateGap()
	r, err := newTestBuilder().Evaluate(o.predictions, nil, o.groups, 1, "gender")
	require.NoError(t, err)

	assert.Equal(t, LabelSourceDecisions, r.Summary.LabelSource)
	assert.True(t, r.Summary.ReducedConfidence)
	assert.Equal(t, []string{ReducedConfidenceCaveat}, r.Caveats)
	// decisions as labels make every group's TPR 1
	assert.Equal(t, 0.0, r.FairnessMetrics.EqualOpportunityDifference)
	assert.Equal(t, 1.0, r.GroupStatistics["A"].TruePositiveRate)
}

func TestEvaluate_ShapeMismatch(t *testing.T) {
	_, err := newTestBuilder().Evaluate([]int{1, 0}, []int{1, 0}, []string{"a"}, 1, "gender")
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestEvaluate_Empty(t *testing.T) {
	tests := []struct {
		name   string
		labels []int
	}{
		{name: "with labels", labels: []int{}},
		{name: "without labels", labels: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := newTestBuilder().Evaluate([]int{}, tt.labels, []string{}, 1, "gender")
			assert.ErrorIs(t, err, ErrEmptyDataset)
			assert.EqualError(t, err, NoDataMessage)
			assert.Nil(t, r)
		})
	}
}

func TestEvaluate_RoundsGroupStatistics(t *testing.T) {
	o := new(observations).add("A", 1, 1, 1, 0).add("B", 1, 0, 2, 0)
	r, err := newTestBuilder().Evaluate(o.predictions, o.labels, o.groups, 1, "gender")
	require.NoError(t, err)
	assert.Equal(t, 0.6667, r.GroupStatistics["A"].SelectionRate)
	assert.Equal(t, 0.3333, r.GroupStatistics["B"].SelectionRate)
}

func TestAnalyzeAttribute(t *testing.T) {
	b := newTestBuilder()

	t.Run("empty dataset", func(t *testing.T) {
		out := b.AnalyzeAttribute(dataset.New(nil), "gender", DefaultColumns())
		assert.False(t, out.OK())
		assert.Nil(t, out.Report)
		assert.Equal(t, NoDataMessage, out.Error)
		assert.Equal(t, ErrorEmptyDataset, out.ErrorKind)
		assert.False(t, out.BiasDetected)

		data, err := json.Marshal(out)
		require.NoError(t, err)
		assert.JSONEq(t, `{"error":"No data provided","error_kind":"empty_dataset","bias_detected":false}`, string(data))
	})

	t.Run("missing attribute", func(t *testing.T) {
		out := b.AnalyzeAttribute(table(twoGroupGap(), "gender", true), "ethnicity", DefaultColumns())
		assert.Equal(t, ErrorMissingColumn, out.ErrorKind)
		assert.Equal(t, "ethnicity", out.Column)
		assert.Contains(t, out.Error, "ethnicity")

		var ae *AnalysisError
		require.True(t, errors.As(out.Err(), &ae))
		assert.Equal(t, ErrorMissingColumn, ae.Kind)
	})

	t.Run("missing decision column", func(t *testing.T) {
		cols := DefaultColumns()
		cols.Decision = "outcome"
		out := b.AnalyzeAttribute(table(twoGroupGap(), "gender", true), "gender", cols)
		assert.Equal(t, ErrorMissingColumn, out.ErrorKind)
		assert.Equal(t, "outcome", out.Column)
	})

	t.Run("required ground truth absent", func(t *testing.T) {
		cols := DefaultColumns()
		cols.RequireGroundTruth = true
		out := b.AnalyzeAttribute(table(twoGroupGap(), "gender", false), "gender", cols)
		assert.Equal(t, ErrorMissingColumn, out.ErrorKind)
		assert.Equal(t, "ground_truth", out.Column)
	})

	t.Run("ground truth absent falls back to decisions", func(t *testing.T) {
		out := b.AnalyzeAttribute(table(twoGroupGap(), "gender", false), "gender", DefaultColumns())
		require.True(t, out.OK())
		require.NoError(t, out.Err())
		assert.True(t, out.Report.Summary.ReducedConfidence)
		assert.Contains(t, out.Report.Caveats, ReducedConfidenceCaveat)
		assert.True(t, out.BiasDetected)
	})

	t.Run("invalid decision value", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{
			{"decision": 1.0, "gender": "f"},
			{"decision": "maybe", "gender": "m"},
		})
		out := b.AnalyzeAttribute(ds, "gender", DefaultColumns())
		assert.Equal(t, ErrorInvalidValue, out.ErrorKind)
		assert.Equal(t, "decision", out.Column)
	})

	t.Run("full pipeline", func(t *testing.T) {
		out := b.AnalyzeAttribute(table(twoGroupGap(), "gender", true), "gender", DefaultColumns())
		require.True(t, out.OK())
		assert.Equal(t, 40.0, out.Report.Summary.FairnessScore)
		assert.Equal(t, LabelSourceGroundTruth, out.Report.Summary.LabelSource)
	})

	t.Run("missing group values become unknown", func(t *testing.T) {
		ds := dataset.New([]dataset.Row{
			{"decision": 1.0, "gender": "f"},
			{"decision": 0.0},
		})
		out := b.AnalyzeAttribute(ds, "gender", DefaultColumns())
		require.True(t, out.OK())
		assert.Equal(t, []string{"f", dataset.UnknownGroup}, out.Report.Summary.GroupsAnalyzed)
	})
}

func TestAudit(t *testing.T) {
	b := newTestBuilder()

	o := twoGroupGap()
	rows := table(o, "gender", true).Rows
	for i, row := range rows {
		// age_group is balanced against the decision
		if i%2 == 0 {
			row["age_group"] = "18-30"
		} else {
			row["age_group"] = "31-50"
		}
	}
	ds := dataset.New(rows)

	report := b.Audit(ds, AuditRequest{JobID: "job-42", Columns: DefaultColumns()})

	assert.Equal(t, "audit-1", report.AuditID)
	assert.Equal(t, "job-42", report.JobID)
	assert.Equal(t, fixedTime, report.AuditDate)
	assert.Equal(t, 200, report.TotalApplications)
	assert.Equal(t, []string{"gender", "age_group"}, report.Attributes)
	assert.Equal(t, []string{"ethnicity"}, report.SkippedAttributes)
	require.Len(t, report.Analyses, 2)

	assert.True(t, report.Analyses["gender"].BiasDetected)
	assert.False(t, report.Analyses["age_group"].BiasDetected)
	assert.True(t, report.OverallBiasDetected)
	assert.Equal(t, biasSummaryRecommendations, report.SummaryRecommendations)
}

func TestAudit_NoBias(t *testing.T) {
	o := new(observations).add("f", 5, 0, 5, 0).add("m", 5, 0, 5, 0)
	report := newTestBuilder().Audit(table(o, "gender", true), AuditRequest{
		Attributes: []string{"gender", "gender"},
		Columns:    DefaultColumns(),
	})

	assert.Equal(t, []string{"gender"}, report.Attributes)
	assert.False(t, report.OverallBiasDetected)
	assert.Equal(t, fairSummaryRecommendations, report.SummaryRecommendations)
}

func TestAudit_EmptyDataset(t *testing.T) {
	report := newTestBuilder().Audit(dataset.New(nil), AuditRequest{Attributes: []string{"gender"}})

	require.Contains(t, report.Analyses, "gender")
	assert.Equal(t, ErrorEmptyDataset, report.Analyses["gender"].ErrorKind)
	assert.False(t, report.OverallBiasDetected)
	assert.Equal(t, 0, report.TotalApplications)
}

func TestLegacyHelpers(t *testing.T) {
	rates := map[string]float64{"a": 0.6, "b": 0.3, "c": 0}

	assert.Equal(t, 0.6, DemographicParityFromRates(rates))
	assert.Equal(t, 0.0, DemographicParityFromRates(map[string]float64{"a": 0.9}))
	assert.Equal(t, 0.25, EqualOpportunityFromRates(map[string]float64{"x": 1, "y": 0.75}))
	assert.Equal(t, 0.0, EqualOpportunityFromRates(nil))

	di := DisparateImpactFromRates(rates)
	assert.Equal(t, DisparateImpact{{Numerator: "a", Denominator: "b"}: 2}, di)
	assert.Empty(t, DisparateImpactFromRates(map[string]float64{"a": 1}))
}

func TestLegacyView(t *testing.T) {
	o := twoGroupGap()
	r, err := newTestBuilder().Evaluate(o.predictions, o.labels, o.groups, 1, "gender")
	require.NoError(t, err)

	view := LegacyView(r)
	assert.Equal(t, 200, view.TotalApplications)
	assert.Equal(t, map[string]int{"A": 100, "B": 100}, view.DemographicBreakdown)
	assert.Equal(t, map[string]float64{"A": 0.8, "B": 0.4}, view.SelectionRates)
	assert.Equal(t, r.BiasAnalysis.Violations, view.BiasGroups)
	assert.Equal(t, 40.0, view.FairnessScore)
}
