package scoring

import (
	"strings"

	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Preference blend weights. Absent factors renormalize the rest.
const (
	weightUserPreference = 0.30
	weightLoyaltyTier    = 0.20
	weightCategoryBoost  = 0.25
	weightPromotion      = 0.15
	weightBase           = 0.10
)

// PreferenceWeighting computes the per-card multiplicative preference
// weight from loyalty tier, merchant category, issuer promotions and user
// preferences.
type PreferenceWeighting struct{}

// NewPreferenceWeighting creates a PreferenceWeighting.
func NewPreferenceWeighting() *PreferenceWeighting {
	return &PreferenceWeighting{}
}

// Weight blends the configured multipliers for one card and clamps the
// result to the table bounds. Lookup misses fall back to neutral 1.0;
// genuinely absent factors (no user preferences configured, no matching
// promotion) drop out of the blend entirely.
func (p *PreferenceWeighting) Weight(t *config.Tables, card *domain.CardMetadata, tc *domain.TransactionContext) float64 {
	pt := &t.Preference

	userValue, userPresent := userPreferenceValue(pt, card)
	promoValue, promoPresent := promotionValue(pt, card)

	factors := []Factor{
		{Name: "user_preference", Weight: weightUserPreference, Value: userValue, Present: userPresent},
		{Name: "loyalty_tier", Weight: weightLoyaltyTier, Value: pt.TierMultiplier(tc.Customer.LoyaltyTier), Present: true},
		{Name: "category_boost", Weight: weightCategoryBoost, Value: pt.CategoryBoost(tc.Merchant.MCC), Present: true},
		{Name: "promotion", Weight: weightPromotion, Value: promoValue, Present: promoPresent},
		{Name: "base", Weight: weightBase, Value: 1.0, Present: true},
	}

	return pt.Bounds.Clamp(Blend(factors, 1.0))
}

// userPreferenceValue combines the cashback-vs-points preference with
// issuer affinity. Present only when the table carries user preferences at
// all; a non-matching card stays at neutral 1.0.
func userPreferenceValue(pt *config.PreferenceTable, card *domain.CardMetadata) (float64, bool) {
	prefs := pt.UserPreferences
	if prefs.RewardType == "" && len(prefs.PreferredIssuers) == 0 {
		return 1.0, false
	}

	value := 1.0
	if prefs.RewardType != "" && strings.EqualFold(card.RewardType, prefs.RewardType) {
		value *= pt.RewardTypeMatch
	}
	for _, issuer := range prefs.PreferredIssuers {
		if strings.EqualFold(card.Issuer, issuer) {
			value *= pt.IssuerAffinity
			break
		}
	}
	return value, true
}

// promotionValue resolves the strongest multiplier among the card's active
// promotions. Absent when no promotion matches the table.
func promotionValue(pt *config.PreferenceTable, card *domain.CardMetadata) (float64, bool) {
	best := 0.0
	found := false
	for _, id := range card.PromotionIDs {
		m, ok := pt.PromotionMultipliers[id]
		if !ok {
			continue
		}
		if !found || m > best {
			best = m
			found = true
		}
	}
	if !found {
		return 1.0, false
	}
	return best, true
}
