package scoring

import (
	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// ExpectedRewards estimates the effective reward rate of a card at this
// merchant: base rate plus MCC category bonus plus the prorated signup
// bonus while eligible, floored at zero and capped at the configured
// maximum (default 0.10).
func (c *Composer) ExpectedRewards(t *config.Tables, card *domain.CardMetadata, mcc string) float64 {
	rate := card.BaseRewardRate
	rate += card.CategoryBonuses[mcc]
	if card.SignupBonusEligible {
		rate += card.SignupBonusRate * t.Preference.SignupProration
	}
	if rate < 0 {
		rate = 0
	}
	if limit := t.Preference.RewardsCap; rate > limit {
		rate = limit
	}
	return rate
}
