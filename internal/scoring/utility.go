package scoring

import (
	"sort"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Composer combines approval probability, expected rewards, preference
// weight and merchant penalty into one ranking score per candidate card.
// Pure multiplication, no side effects.
type Composer struct{}

// NewComposer creates a Composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Utility builds the composite score for one card.
func (c *Composer) Utility(cardID string, pApproval, expectedRewards, preferenceWeight, merchantPenalty float64) domain.CardUtility {
	return domain.CardUtility{
		CardID:           cardID,
		PApproval:        pApproval,
		ExpectedRewards:  expectedRewards,
		PreferenceWeight: preferenceWeight,
		MerchantPenalty:  merchantPenalty,
		UtilityScore:     pApproval * expectedRewards * preferenceWeight * merchantPenalty,
	}
}

// Rank sorts candidates descending by utility score. The sort is stable, so
// exact ties keep their original input order. The input slice is left
// untouched.
func (c *Composer) Rank(utilities []domain.CardUtility) []domain.CardUtility {
	ranked := make([]domain.CardUtility, len(utilities))
	copy(ranked, utilities)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].UtilityScore > ranked[j].UtilityScore
	})
	return ranked
}
