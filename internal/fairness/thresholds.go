package fairness

import (
	"fmt"

	"github.com/creasty/defaults"
)

// Thresholds holds every tunable constant used by the detector and the scorer.
// It is passed by value so a running detector never observes a later change.
type Thresholds struct {
	DemographicParityDifference float64 `yaml:"demographicParityDifference" mapstructure:"demographicParityDifference" default:"0.1"`
	DemographicParityHigh       float64 `yaml:"demographicParityHigh" mapstructure:"demographicParityHigh" default:"0.2"`
	DisparateImpactRatio        float64 `yaml:"disparateImpactRatio" mapstructure:"disparateImpactRatio" default:"0.8"`
	DisparateImpactHigh         float64 `yaml:"disparateImpactHigh" mapstructure:"disparateImpactHigh" default:"0.6"`
	EqualOpportunityDifference  float64 `yaml:"equalOpportunityDifference" mapstructure:"equalOpportunityDifference" default:"0.1"`
	AverageOddsDifference       float64 `yaml:"averageOddsDifference" mapstructure:"averageOddsDifference" default:"0.1"`
	// PredictiveParityDifference is reported only; it raises no violation and does not affect the score.
	PredictiveParityDifference  float64 `yaml:"predictiveParityDifference" mapstructure:"predictiveParityDifference" default:"0.1"`
	FalsePositiveRateDifference float64 `yaml:"falsePositiveRateDifference" mapstructure:"falsePositiveRateDifference" default:"0.1"`
	// FalseNegativeRateDifference is reported only; it raises no violation and does not affect the score.
	FalseNegativeRateDifference float64 `yaml:"falseNegativeRateDifference" mapstructure:"falseNegativeRateDifference" default:"0.1"`

	// FlagLowSeverity makes a low-severity violation alone set bias_detected.
	FlagLowSeverity bool `yaml:"flagLowSeverity" mapstructure:"flagLowSeverity" default:"false"`

	Weights   SeverityWeights `yaml:"weights" mapstructure:"weights"`
	Bands     SeverityBands   `yaml:"bands" mapstructure:"bands"`
	Penalties ScorePenalties  `yaml:"penalties" mapstructure:"penalties"`
}

// SeverityWeights are the integer contributions of each violation to the severity score.
type SeverityWeights struct {
	DemographicParityHigh   int `yaml:"demographicParityHigh" mapstructure:"demographicParityHigh" default:"3"`
	DemographicParityMedium int `yaml:"demographicParityMedium" mapstructure:"demographicParityMedium" default:"2"`
	DisparateImpactHigh     int `yaml:"disparateImpactHigh" mapstructure:"disparateImpactHigh" default:"4"`
	DisparateImpactMedium   int `yaml:"disparateImpactMedium" mapstructure:"disparateImpactMedium" default:"2"`
	EqualOpportunity        int `yaml:"equalOpportunity" mapstructure:"equalOpportunity" default:"2"`
	AverageOdds             int `yaml:"averageOdds" mapstructure:"averageOdds" default:"2"`
	FalsePositiveRate       int `yaml:"falsePositiveRate" mapstructure:"falsePositiveRate" default:"1"`
}

// SeverityBands are the lower bounds of the overall severity levels.
type SeverityBands struct {
	Critical int `yaml:"critical" mapstructure:"critical" default:"6"`
	High     int `yaml:"high" mapstructure:"high" default:"4"`
	Medium   int `yaml:"medium" mapstructure:"medium" default:"2"`
}

// ScorePenalties caps and scales the deductions applied by the scorer.
type ScorePenalties struct {
	DemographicParityCap  float64 `yaml:"demographicParityCap" mapstructure:"demographicParityCap" default:"30"`
	DisparateImpactCap    float64 `yaml:"disparateImpactCap" mapstructure:"disparateImpactCap" default:"30"`
	EqualOpportunityCap   float64 `yaml:"equalOpportunityCap" mapstructure:"equalOpportunityCap" default:"20"`
	AverageOddsCap        float64 `yaml:"averageOddsCap" mapstructure:"averageOddsCap" default:"15"`
	FalsePositiveRateCap  float64 `yaml:"falsePositiveRateCap" mapstructure:"falsePositiveRateCap" default:"5"`
	DifferenceMultiplier  float64 `yaml:"differenceMultiplier" mapstructure:"differenceMultiplier" default:"100"`
	FalsePositiveRateMult float64 `yaml:"falsePositiveRateMultiplier" mapstructure:"falsePositiveRateMultiplier" default:"50"`
}

// DefaultThresholds returns the standard threshold table.
func DefaultThresholds() Thresholds {
	var th Thresholds
	if err := defaults.Set(&th); err != nil {
		// struct tags are static; a failure here is a programming error
		panic(fmt.Sprintf("fairness: invalid default tags: %v", err))
	}
	return th
}

// Validate checks that the thresholds describe a coherent policy.
func (t Thresholds) Validate() error {
	diffs := map[string]float64{
		"demographicParityDifference": t.DemographicParityDifference,
		"demographicParityHigh":       t.DemographicParityHigh,
		"equalOpportunityDifference":  t.EqualOpportunityDifference,
		"averageOddsDifference":       t.AverageOddsDifference,
		"predictiveParityDifference":  t.PredictiveParityDifference,
		"falsePositiveRateDifference": t.FalsePositiveRateDifference,
		"falseNegativeRateDifference": t.FalseNegativeRateDifference,
		"disparateImpactRatio":        t.DisparateImpactRatio,
		"disparateImpactHigh":         t.DisparateImpactHigh,
	}
	for name, v := range diffs {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %s must be within [0, 1], got %v", name, v)
		}
	}
	if t.DemographicParityHigh < t.DemographicParityDifference {
		return fmt.Errorf("demographicParityHigh (%v) must not be below demographicParityDifference (%v)",
			t.DemographicParityHigh, t.DemographicParityDifference)
	}
	if t.DisparateImpactHigh > t.DisparateImpactRatio {
		return fmt.Errorf("disparateImpactHigh (%v) must not be above disparateImpactRatio (%v)",
			t.DisparateImpactHigh, t.DisparateImpactRatio)
	}
	if t.Bands.Critical < t.Bands.High || t.Bands.High < t.Bands.Medium {
		return fmt.Errorf("severity bands must be ordered critical >= high >= medium, got %d/%d/%d",
			t.Bands.Critical, t.Bands.High, t.Bands.Medium)
	}
	return nil
}
