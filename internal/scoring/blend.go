// Package scoring implements the per-card factors behind the ranking:
// preference weighting, merchant penalty, expected rewards and the utility
// composition itself.
package scoring

// Factor is one weighted term of a blend. Absent factors drop out and the
// remaining weights are renormalized, so partial data shifts emphasis
// instead of dragging the result toward zero.
type Factor struct {
	Name    string
	Weight  float64
	Value   float64
	Present bool
}

// Blend folds the present factors with renormalized weights. When nothing
// is present the neutral value is returned.
func Blend(factors []Factor, neutral float64) float64 {
	var weightSum, acc float64
	for _, f := range factors {
		if !f.Present {
			continue
		}
		weightSum += f.Weight
		acc += f.Weight * f.Value
	}
	if weightSum == 0 {
		return neutral
	}
	return acc / weightSum
}
