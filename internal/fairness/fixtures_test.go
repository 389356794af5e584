package fairness

// observations accumulates parallel prediction/label/group arrays.
type observations struct {
	predictions []int
	labels      []int
	groups      []string
}

// add appends a group's confusion-matrix cells as individual observations.
func (o *observations) add(group string, tp, fp, tn, fn int) *observations {
	push := func(n, pred, label int) {
		for i := 0; i < n; i++ {
			o.predictions = append(o.predictions, pred)
			o.labels = append(o.labels, label)
			o.groups = append(o.groups, group)
		}
	}
	push(tp, 1, 1)
	push(fp, 1, 0)
	push(tn, 0, 0)
	push(fn, 0, 1)
	return o
}

// twoGroupGap is 80/100 favorable in A and 40/100 in B with labels equal to predictions.
func twoGroupGap() *observations {
	return new(observations).add("A", 80, 0, 20, 0).add("B", 40, 0, 60, 0)
}

// errorRateGap has A with TPR 0.5 and B with TPR 1.0 at equal FPR.
func errorRateGap() *observations {
	return new(observations).add("A", 1, 1, 1, 1).add("B", 2, 1, 1, 0)
}

// falsePositiveOnly differs only in false positive rate (0.2 vs 0).
func falsePositiveOnly() *observations {
	return new(observations).add("A", 5, 1, 4, 0).add("B", 5, 0, 5, 0)
}

func mustMetrics(o *observations) MetricSet {
	stats, err := ComputeGroupStatistics(o.predictions, o.labels, o.groups, 1)
	if err != nil {
		panic(err)
	}
	return ComputeMetrics(stats)
}
