package fairness

import (
	"errors"
	"fmt"
	"sort"
)

// ErrShapeMismatch is returned when predictions, labels and groups differ in length.
var ErrShapeMismatch = errors.New("shape mismatch")

// ErrEmptyDataset is returned when there are no observations to analyze.
var ErrEmptyDataset = errors.New(NoDataMessage)

// GroupStatistics is the confusion-matrix summary of one protected group.
type GroupStatistics struct {
	Count             int     `json:"count"`
	SelectionRate     float64 `json:"selection_rate"`
	BaseRate          float64 `json:"base_rate"`
	TruePositives     int     `json:"true_positives"`
	FalsePositives    int     `json:"false_positives"`
	TrueNegatives     int     `json:"true_negatives"`
	FalseNegatives    int     `json:"false_negatives"`
	TruePositiveRate  float64 `json:"true_positive_rate"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
	TrueNegativeRate  float64 `json:"true_negative_rate"`
	FalseNegativeRate float64 `json:"false_negative_rate"`
	Precision         float64 `json:"precision"`
	Recall            float64 `json:"recall"`
	F1Score           float64 `json:"f1_score"`
}

// Benefit is the number of favorable predictions the group received.
func (g GroupStatistics) Benefit() int {
	return g.TruePositives + g.FalsePositives
}

// Rounded returns a copy with every rate rounded to four decimals.
func (g GroupStatistics) Rounded() GroupStatistics {
	g.SelectionRate = round4(g.SelectionRate)
	g.BaseRate = round4(g.BaseRate)
	g.TruePositiveRate = round4(g.TruePositiveRate)
	g.FalsePositiveRate = round4(g.FalsePositiveRate)
	g.TrueNegativeRate = round4(g.TrueNegativeRate)
	g.FalseNegativeRate = round4(g.FalseNegativeRate)
	g.Precision = round4(g.Precision)
	g.Recall = round4(g.Recall)
	g.F1Score = round4(g.F1Score)
	return g
}

// ComputeGroupStatistics partitions observations by group and aggregates each partition.
func ComputeGroupStatistics(predictions, labels []int, groups []string, favorable int) (map[string]GroupStatistics, error) {
	if len(predictions) != len(labels) || len(predictions) != len(groups) {
		return nil, fmt.Errorf("%w: predictions=%d labels=%d groups=%d",
			ErrShapeMismatch, len(predictions), len(labels), len(groups))
	}

	type tally struct {
		n, predPos, labelPos, tp, fp, tn, fn int
	}
	tallies := make(map[string]*tally)
	for i, group := range groups {
		t, ok := tallies[group]
		if !ok {
			t = &tally{}
			tallies[group] = t
		}
		predFav := predictions[i] == favorable
		labelFav := labels[i] == favorable

		t.n++
		if predFav {
			t.predPos++
		}
		if labelFav {
			t.labelPos++
		}
		switch {
		case predFav && labelFav:
			t.tp++
		case predFav && !labelFav:
			t.fp++
		case !predFav && !labelFav:
			t.tn++
		default:
			t.fn++
		}
	}

	stats := make(map[string]GroupStatistics, len(tallies))
	for group, t := range tallies {
		tpr := ratio(t.tp, t.tp+t.fn)
		precision := ratio(t.tp, t.tp+t.fp)
		f1 := 0.0
		if precision+tpr > 0 {
			f1 = 2 * precision * tpr / (precision + tpr)
		}
		stats[group] = GroupStatistics{
			Count:             t.n,
			SelectionRate:     ratio(t.predPos, t.n),
			BaseRate:          ratio(t.labelPos, t.n),
			TruePositives:     t.tp,
			FalsePositives:    t.fp,
			TrueNegatives:     t.tn,
			FalseNegatives:    t.fn,
			TruePositiveRate:  tpr,
			FalsePositiveRate: ratio(t.fp, t.fp+t.tn),
			TrueNegativeRate:  ratio(t.tn, t.tn+t.fp),
			FalseNegativeRate: ratio(t.fn, t.fn+t.tp),
			Precision:         precision,
			Recall:            tpr,
			F1Score:           f1,
		}
	}
	return stats, nil
}

// SortedGroups returns the group keys in ascending order.
func SortedGroups[V any](stats map[string]V) []string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ratio divides with a zero-denominator result of 0.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
