package domain

import (
	"fmt"
	"math"
)

// AdditivityTolerance is the absolute tolerance for the attribution sum
// check.
const AdditivityTolerance = 1e-10

// FeatureContribution is one signed term of an additive risk explanation.
type FeatureContribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// AdditiveAttribution is the explainable decomposition of a raw score:
// baseline plus ordered signed contributions. Immutable once constructed.
//
// Invariant: Sum equals Baseline plus the sum of every contribution, within
// AdditivityTolerance. Zero-valued contributions are dropped from the stored
// list to reduce noise; since they add nothing, the invariant holds either
// way.
type AdditiveAttribution struct {
	Baseline      float64               `json:"baseline"`
	Contributions []FeatureContribution `json:"contributions"`
	Sum           float64               `json:"sum"`
}

// NewAdditiveAttribution builds an attribution from a baseline and the full
// contribution list. The sum is computed over all terms before zero-valued
// ones are filtered out.
func NewAdditiveAttribution(baseline float64, contributions []FeatureContribution) AdditiveAttribution {
	sum := baseline
	kept := make([]FeatureContribution, 0, len(contributions))
	for _, c := range contributions {
		sum += c.Value
		if c.Value != 0 {
			kept = append(kept, c)
		}
	}
	return AdditiveAttribution{
		Baseline:      baseline,
		Contributions: kept,
		Sum:           sum,
	}
}

// Validate recomputes the sum and checks it against the stored value. A
// failure is an ErrInvariant, never a user-facing validation error.
func (a *AdditiveAttribution) Validate() error {
	total := a.Baseline
	for _, c := range a.Contributions {
		total += c.Value
	}
	diff := math.Abs(total - a.Sum)
	if math.IsNaN(diff) || diff > AdditivityTolerance {
		return fmt.Errorf("%w: attribution sum %v diverges from baseline plus contributions %v", ErrInvariant, a.Sum, total)
	}
	return nil
}
