package fairness

import (
	"fmt"
	"math"
	"strings"
)

const pairSeparator = "_vs_"

// GroupPair identifies one direction of a disparate impact comparison:
// the selection rate of Numerator divided by that of Denominator.
type GroupPair struct {
	Numerator   string
	Denominator string
}

func (p GroupPair) String() string {
	return p.Numerator + pairSeparator + p.Denominator
}

// MarshalText renders the pair as "A_vs_B" so it can key a JSON object.
func (p GroupPair) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText splits on the first "_vs_".
func (p *GroupPair) UnmarshalText(text []byte) error {
	num, den, ok := strings.Cut(string(text), pairSeparator)
	if !ok {
		return fmt.Errorf("invalid group pair %q: missing %q", text, pairSeparator)
	}
	p.Numerator, p.Denominator = num, den
	return nil
}

// DisparateImpact maps each ordered group pair to its selection-rate ratio.
type DisparateImpact map[GroupPair]float64

// Get returns the ratio rate(a)/rate(b) when it is defined.
func (d DisparateImpact) Get(a, b string) (float64, bool) {
	v, ok := d[GroupPair{Numerator: a, Denominator: b}]
	return v, ok
}

// MetricSet holds the cross-group fairness metrics of one analysis.
type MetricSet struct {
	DemographicParityDifference float64         `json:"demographic_parity_difference"`
	DemographicParityRatio      float64         `json:"demographic_parity_ratio"`
	DisparateImpact             DisparateImpact `json:"disparate_impact"`
	EqualOpportunityDifference  float64         `json:"equal_opportunity_difference"`
	AverageOddsDifference       float64         `json:"average_odds_difference"`
	PredictiveParityDifference  float64         `json:"predictive_parity_difference"`
	FalsePositiveRateDifference float64         `json:"false_positive_rate_difference"`
	FalseNegativeRateDifference float64         `json:"false_negative_rate_difference"`
	TheilIndex                  float64         `json:"theil_index"`
}

// ComputeMetrics derives the metric set from per-group statistics.
func ComputeMetrics(stats map[string]GroupStatistics) MetricSet {
	groups := SortedGroups(stats)

	pick := func(f func(GroupStatistics) float64) []float64 {
		values := make([]float64, len(groups))
		for i, g := range groups {
			values[i] = f(stats[g])
		}
		return values
	}

	selection := pick(func(s GroupStatistics) float64 { return s.SelectionRate })
	tprSpan := span(pick(func(s GroupStatistics) float64 { return s.TruePositiveRate }))
	fprSpan := span(pick(func(s GroupStatistics) float64 { return s.FalsePositiveRate }))

	return MetricSet{
		DemographicParityDifference: round4(span(selection)),
		DemographicParityRatio:      round4(parityRatio(selection)),
		DisparateImpact:             disparateImpact(groups, stats),
		EqualOpportunityDifference:  round4(tprSpan),
		AverageOddsDifference:       round4(0.5 * (tprSpan + fprSpan)),
		PredictiveParityDifference:  round4(span(pick(func(s GroupStatistics) float64 { return s.Precision }))),
		FalsePositiveRateDifference: round4(fprSpan),
		FalseNegativeRateDifference: round4(span(pick(func(s GroupStatistics) float64 { return s.FalseNegativeRate }))),
		TheilIndex:                  round4(theilIndex(groups, stats)),
	}
}

func disparateImpact(groups []string, stats map[string]GroupStatistics) DisparateImpact {
	di := make(DisparateImpact)
	for _, a := range groups {
		for _, b := range groups {
			if a == b {
				continue
			}
			den := stats[b].SelectionRate
			if den <= 0 {
				continue
			}
			di[GroupPair{Numerator: a, Denominator: b}] = round4(stats[a].SelectionRate / den)
		}
	}
	return di
}

// theilIndex measures inequality of favorable predictions across groups.
func theilIndex(groups []string, stats map[string]GroupStatistics) float64 {
	total, population := 0, 0
	for _, g := range groups {
		total += stats[g].Benefit()
		population += stats[g].Count
	}
	if total == 0 || population == 0 {
		return 0
	}

	mu := float64(total) / float64(population)
	theil := 0.0
	for _, g := range groups {
		s := stats[g]
		b := s.Benefit()
		if b <= 0 {
			continue
		}
		share := float64(b) / float64(total)
		theil += share * math.Log(float64(b)/(float64(s.Count)*mu))
	}
	return theil
}

func parityRatio(rates []float64) float64 {
	lo, hi := bounds(rates)
	if hi <= 0 {
		return 1.0
	}
	return lo / hi
}

func span(values []float64) float64 {
	lo, hi := bounds(values)
	return hi - lo
}

func bounds(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
