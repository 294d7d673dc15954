package scoring

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Penalty blend weights for the resolved fallback tiers.
const (
	weightMerchantMatch  = 0.40
	weightFamilyPenalty  = 0.30
	weightNetworkPenalty = 0.30
)

// MerchantPenalty computes the per-request multiplicative penalty
// reflecting merchant and network acceptance preferences.
type MerchantPenalty struct{}

// NewMerchantPenalty creates a MerchantPenalty.
func NewMerchantPenalty() *MerchantPenalty {
	return &MerchantPenalty{}
}

// Penalty resolves the merchant against the penalty tables and blends
// whichever tiers matched. Resolution order inside the merchant tier: exact
// name+MCC match first, then fuzzy name match over known variants at the
// configured similarity threshold. Nothing matching anywhere is the neutral
// base penalty 1.0. The blend is clamped to the table bounds regardless of
// which tier resolved.
func (m *MerchantPenalty) Penalty(t *config.Tables, tc *domain.TransactionContext) float64 {
	mt := &t.Merchant

	merchantValue, merchantPresent := resolveMerchant(mt, &tc.Merchant)
	familyValue, familyPresent := mt.FamilyPenalties[tc.Merchant.MCC]
	networkValue, networkPresent := resolveNetworkFlag(mt, &tc.Merchant)

	factors := []Factor{
		{Name: "merchant", Weight: weightMerchantMatch, Value: merchantValue, Present: merchantPresent},
		{Name: "family", Weight: weightFamilyPenalty, Value: familyValue, Present: familyPresent},
		{Name: "network", Weight: weightNetworkPenalty, Value: networkValue, Present: networkPresent},
	}

	return mt.Bounds.Clamp(Blend(factors, 1.0))
}

// resolveMerchant finds a merchant-specific penalty: exact match on
// name+MCC, then fuzzy match against the entry names and variants. MCC must
// match exactly in both steps; only the name comparison is fuzzy. Ties keep
// the first table entry for determinism.
func resolveMerchant(mt *config.MerchantTable, merchant *domain.Merchant) (float64, bool) {
	name := strings.ToLower(strings.TrimSpace(merchant.Name))

	for _, e := range mt.Merchants {
		if e.MCC == merchant.MCC && strings.ToLower(e.Name) == name {
			return e.Penalty, true
		}
	}

	bestSim := 0.0
	bestPenalty := 0.0
	found := false
	for _, e := range mt.Merchants {
		if e.MCC != merchant.MCC {
			continue
		}
		candidates := append([]string{e.Name}, e.Variants...)
		for _, c := range candidates {
			sim := similarity(name, strings.ToLower(c))
			if sim >= mt.SimilarityThreshold && sim > bestSim {
				bestSim = sim
				bestPenalty = e.Penalty
				found = true
			}
		}
	}
	return bestPenalty, found
}

// similarity is normalized Levenshtein: 1 - distance/maxLen.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// resolveNetworkFlag walks the merchant's declared network preferences in
// order and returns the penalty of the first one present in the table.
func resolveNetworkFlag(mt *config.MerchantTable, merchant *domain.Merchant) (float64, bool) {
	for _, pref := range merchant.NetworkPreferences {
		if v, ok := mt.NetworkPenalties[strings.ToLower(pref)]; ok {
			return v, true
		}
	}
	return 0, false
}
