package fairness

import "math"

// Badge is the letter grade attached to a fairness score.
type Badge struct {
	Level       string `json:"level"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type badgeBand struct {
	min   float64
	badge Badge
}

var badgeBands = []badgeBand{
	{90, Badge{Level: "A+", Label: "Excellent Fairness", Color: "#10b981",
		Description: "Hiring process demonstrates excellent fairness across all groups"}},
	{80, Badge{Level: "A", Label: "Good Fairness", Color: "#22c55e",
		Description: "Hiring process is generally fair with minor areas for improvement"}},
	{70, Badge{Level: "B", Label: "Acceptable Fairness", Color: "#eab308",
		Description: "Hiring process is acceptable but has notable fairness concerns"}},
	{60, Badge{Level: "C", Label: "Fair Concerns", Color: "#f59e0b",
		Description: "Hiring process shows significant fairness issues requiring attention"}},
	{50, Badge{Level: "D", Label: "Serious Issues", Color: "#ef4444",
		Description: "Hiring process has serious fairness violations requiring immediate action"}},
}

var failingBadge = Badge{Level: "F", Label: "Critical Bias", Color: "#dc2626",
	Description: "URGENT: Hiring process shows critical bias. Immediate intervention required"}

// Scorer turns a metric set into a 0-100 fairness score.
type Scorer struct {
	th Thresholds
}

// NewScorer returns a scorer bound to a copy of th.
func NewScorer(th Thresholds) *Scorer {
	return &Scorer{th: th}
}

// Score starts from 100 and subtracts capped penalties for each metric past its threshold.
func (s *Scorer) Score(m MetricSet) float64 {
	th, p := s.th, s.th.Penalties
	score := 100.0

	if m.DemographicParityDifference > th.DemographicParityDifference {
		score -= math.Min(p.DemographicParityCap, m.DemographicParityDifference*p.DifferenceMultiplier)
	}
	if m.DemographicParityRatio < th.DisparateImpactRatio {
		score -= math.Min(p.DisparateImpactCap, (th.DisparateImpactRatio-m.DemographicParityRatio)*p.DifferenceMultiplier)
	}
	if m.EqualOpportunityDifference > th.EqualOpportunityDifference {
		score -= math.Min(p.EqualOpportunityCap, m.EqualOpportunityDifference*p.DifferenceMultiplier)
	}
	if m.AverageOddsDifference > th.AverageOddsDifference {
		score -= math.Min(p.AverageOddsCap, m.AverageOddsDifference*p.DifferenceMultiplier)
	}
	if m.FalsePositiveRateDifference > th.FalsePositiveRateDifference {
		score -= math.Min(p.FalsePositiveRateCap, m.FalsePositiveRateDifference*p.FalsePositiveRateMult)
	}

	return math.Max(0, round2(score))
}

// BadgeFor maps a score to its badge; each band includes its lower bound.
func BadgeFor(score float64) Badge {
	for _, b := range badgeBands {
		if score >= b.min {
			return b.badge
		}
	}
	return failingBadge
}
