// Package types holds the payloads shared by the CLI, the HTTP server and the formatters.
package types

import "fairhire/internal/fairness"

// EvaluateInput is the parallel-array form of an evaluation. A missing labels
// array means decisions stand in for ground truth.
type EvaluateInput struct {
	Predictions    []int    `json:"predictions"`
	Labels         []int    `json:"labels,omitempty"`
	Groups         []string `json:"groups"`
	FavorableLabel *int     `json:"favorableLabel,omitempty"`
	Attribute      string   `json:"attribute,omitempty"`
}

// Favorable returns the favorable label, defaulting to 1
func (in EvaluateInput) Favorable() int {
	if in.FavorableLabel == nil {
		return 1
	}
	return *in.FavorableLabel
}

// BadgeResult pairs a score with its badge
type BadgeResult struct {
	Score float64 `json:"score"`
	fairness.Badge
}

// NewBadgeResult grades score
func NewBadgeResult(score float64) BadgeResult {
	return BadgeResult{Score: score, Badge: fairness.BadgeFor(score)}
}
