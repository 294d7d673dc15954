// Package explain provides the read-only summarization of additive risk
// attributions: the top positive and negative drivers behind a score.
package explain

import (
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// DefaultTopK is the driver count per direction when none is requested.
const DefaultTopK = 3

// Driver is one summarized contribution, annotated with its magnitude.
type Driver struct {
	Feature   string  `json:"feature"`
	Value     float64 `json:"value"`
	Magnitude float64 `json:"magnitude"`
}

// Drivers are the strongest contributions in each direction.
type Drivers struct {
	Positive []Driver `json:"positive"`
	Negative []Driver `json:"negative"`
}

// Engine summarizes attributions. It never recomputes contribution values;
// it only validates, filters, sorts and truncates them.
type Engine struct{}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// TopDrivers validates the attribution and returns the top-k drivers per
// direction, k defaulting to 3. Positive drivers are ordered by descending
// value, negative by ascending; stable sorts keep the attribution order on
// ties.
func (e *Engine) TopDrivers(attr domain.AdditiveAttribution, k int) (Drivers, error) {
	if err := attr.Validate(); err != nil {
		return Drivers{}, err
	}
	if k <= 0 {
		k = DefaultTopK
	}

	var pos, neg []Driver
	for _, c := range attr.Contributions {
		if c.Value == 0 {
			continue
		}
		d := Driver{Feature: c.Feature, Value: c.Value, Magnitude: abs(c.Value)}
		if c.Value > 0 {
			pos = append(pos, d)
		} else {
			neg = append(neg, d)
		}
	}

	sort.SliceStable(pos, func(i, j int) bool { return pos[i].Value > pos[j].Value })
	sort.SliceStable(neg, func(i, j int) bool { return neg[i].Value < neg[j].Value })

	if len(pos) > k {
		pos = pos[:k]
	}
	if len(neg) > k {
		neg = neg[:k]
	}
	return Drivers{Positive: pos, Negative: neg}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
