package fairness

// Rate helpers for callers that only hold per-group rates rather than raw
// observations. They answer with 0 or an empty table for fewer than two groups.

// DemographicParityFromRates is the max-min span of selection rates.
func DemographicParityFromRates(selectionRates map[string]float64) float64 {
	return spanOfRates(selectionRates)
}

// EqualOpportunityFromRates is the max-min span of true positive rates.
func EqualOpportunityFromRates(truePositiveRates map[string]float64) float64 {
	return spanOfRates(truePositiveRates)
}

// DisparateImpactFromRates compares each group with every group sorted after
// it, one direction only. Pairs whose denominator rate is 0 are left out.
func DisparateImpactFromRates(selectionRates map[string]float64) DisparateImpact {
	di := make(DisparateImpact)
	if len(selectionRates) < 2 {
		return di
	}
	groups := SortedGroups(selectionRates)
	for i, a := range groups {
		for _, b := range groups[i+1:] {
			if den := selectionRates[b]; den > 0 {
				di[GroupPair{Numerator: a, Denominator: b}] = round4(selectionRates[a] / den)
			}
		}
	}
	return di
}

func spanOfRates(rates map[string]float64) float64 {
	if len(rates) < 2 {
		return 0
	}
	values := make([]float64, 0, len(rates))
	for _, g := range SortedGroups(rates) {
		values = append(values, rates[g])
	}
	return round4(span(values))
}

// Legacy is the flat analysis shape older dashboards consume.
type Legacy struct {
	TotalApplications    int                        `json:"total_applications"`
	DemographicBreakdown map[string]int             `json:"demographic_breakdown"`
	SelectionRates       map[string]float64         `json:"selection_rates"`
	FairnessMetrics      MetricSet                  `json:"fairness_metrics"`
	BiasDetected         bool                       `json:"bias_detected"`
	BiasGroups           []Violation                `json:"bias_groups"`
	Recommendations      []string                   `json:"recommendations"`
	FairnessScore        float64                    `json:"fairness_score"`
	GroupStatistics      map[string]GroupStatistics `json:"group_statistics"`
}

// LegacyView flattens a report into the older shape.
func LegacyView(r *FairnessReport) Legacy {
	view := Legacy{
		TotalApplications:    r.Summary.TotalCount,
		DemographicBreakdown: make(map[string]int, len(r.GroupStatistics)),
		SelectionRates:       make(map[string]float64, len(r.GroupStatistics)),
		FairnessMetrics:      r.FairnessMetrics,
		BiasDetected:         r.Summary.BiasDetected,
		BiasGroups:           r.BiasAnalysis.Violations,
		Recommendations:      r.Recommendations,
		FairnessScore:        r.Summary.FairnessScore,
		GroupStatistics:      r.GroupStatistics,
	}
	for group, s := range r.GroupStatistics {
		view.DemographicBreakdown[group] = s.Count
		view.SelectionRates[group] = s.SelectionRate
	}
	return view
}
