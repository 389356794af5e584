package fairness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	s := NewScorer(DefaultThresholds())

	tests := []struct {
		name string
		data *observations
		want float64
	}{
		{"two group gap", twoGroupGap(), 40},
		{"error rate gap", errorRateGap(), 26.67},
		{"false positive only", falsePositiveOnly(), 95},
		{"single group", new(observations).add("solo", 4, 2, 3, 1), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(mustMetrics(tt.data)))
		})
	}
}

func TestScore_NeverNegative(t *testing.T) {
	th := DefaultThresholds()
	th.Penalties.DemographicParityCap = 80
	th.Penalties.DisparateImpactCap = 80

	m := MetricSet{DemographicParityDifference: 1, DemographicParityRatio: 0}
	assert.Equal(t, 0.0, NewScorer(th).Score(m))
}

func TestScore_MonotoneInEachMetric(t *testing.T) {
	s := NewScorer(DefaultThresholds())
	base := MetricSet{DemographicParityRatio: 1}

	moves := map[string]func(MetricSet, float64) MetricSet{
		"parity difference": func(m MetricSet, v float64) MetricSet { m.DemographicParityDifference = v; return m },
		"parity ratio":      func(m MetricSet, v float64) MetricSet { m.DemographicParityRatio = 1 - v; return m },
		"equal opportunity": func(m MetricSet, v float64) MetricSet { m.EqualOpportunityDifference = v; return m },
		"average odds":      func(m MetricSet, v float64) MetricSet { m.AverageOddsDifference = v; return m },
		"false positives":   func(m MetricSet, v float64) MetricSet { m.FalsePositiveRateDifference = v; return m },
	}
	for name, move := range moves {
		t.Run(name, func(t *testing.T) {
			previous := 101.0
			for step := 0; step <= 100; step++ {
				score := s.Score(move(base, float64(step)/100))
				assert.LessOrEqual(t, score, previous, "step %d", step)
				previous = score
			}
		})
	}
}

func TestBadgeFor(t *testing.T) {
	tests := []struct {
		score float64
		level string
		label string
	}{
		{100, "A+", "Excellent Fairness"},
		{90, "A+", "Excellent Fairness"},
		{89.99, "A", "Good Fairness"},
		{80, "A", "Good Fairness"},
		{79.99, "B", "Acceptable Fairness"},
		{70, "B", "Acceptable Fairness"},
		{60, "C", "Fair Concerns"},
		{50, "D", "Serious Issues"},
		{49.99, "F", "Critical Bias"},
		{0, "F", "Critical Bias"},
	}
	for _, tt := range tests {
		b := BadgeFor(tt.score)
		assert.Equal(t, tt.level, b.Level, "score %v", tt.score)
		assert.Equal(t, tt.label, b.Label, "score %v", tt.score)
		assert.NotEmpty(t, b.Description)
		assert.NotEmpty(t, b.Color)
	}
}

func TestThresholds(t *testing.T) {
	th := DefaultThresholds()
	require.NoError(t, th.Validate())
	assert.Equal(t, 0.1, th.DemographicParityDifference)
	assert.Equal(t, 0.8, th.DisparateImpactRatio)
	assert.Equal(t, 4, th.Weights.DisparateImpactHigh)
	assert.Equal(t, 6, th.Bands.Critical)
	assert.Equal(t, 50.0, th.Penalties.FalsePositiveRateMult)
	assert.False(t, th.FlagLowSeverity)

	tests := []struct {
		name   string
		mutate func(*Thresholds)
	}{
		{"out of range", func(t *Thresholds) { t.EqualOpportunityDifference = 1.5 }},
		{"negative", func(t *Thresholds) { t.AverageOddsDifference = -0.1 }},
		{"parity high below parity", func(t *Thresholds) { t.DemographicParityHigh = 0.05 }},
		{"impact high above impact", func(t *Thresholds) { t.DisparateImpactHigh = 0.9 }},
		{"unordered bands", func(t *Thresholds) { t.Bands.High = 7 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(&th)
			assert.Error(t, th.Validate())
		})
	}
}
