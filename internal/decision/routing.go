package decision

import (
	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Routing hint sources, in precedence order.
const (
	SourceMerchantPreference = "merchant_preference"
	SourceMCCTable           = "mcc_table"
	SourceDefault            = "default"
)

// mccNetworks is the static category-code routing table. Merchant-declared
// preferences always take precedence over it.
var mccNetworks = map[string]string{
	"5541": "visa",       // fuel, service stations
	"5542": "visa",       // fuel, automated
	"5411": "interlink",  // grocery
	"5311": "mastercard", // department stores
	"5732": "visa",       // electronics
	"4722": "amex",       // travel agencies
	"4511": "amex",       // airlines
	"7011": "amex",       // hotels
	"5812": "mastercard", // restaurants
}

// ResolveNetwork resolves the preferred network for a merchant: first
// declared merchant preference, then the MCC table, then "any".
func ResolveNetwork(m *domain.Merchant) (network, source string) {
	if len(m.NetworkPreferences) > 0 && m.NetworkPreferences[0] != "" {
		return m.NetworkPreferences[0], SourceMerchantPreference
	}
	if n, ok := mccNetworks[m.MCC]; ok {
		return n, SourceMCCTable
	}
	return domain.NetworkAny, SourceDefault
}

// MCCNetwork returns the MCC-table hint for a category code, empty when the
// table has no entry. Exposed independently of precedence so the hint stays
// visible even when a merchant preference overrides it.
func MCCNetwork(mcc string) string {
	return mccNetworks[mcc]
}

// approvalOdds maps a final score through the configured monotone step
// function. Scores below the first step use the first step's odds.
func approvalOdds(steps []config.OddsStep, final int) *float64 {
	if len(steps) == 0 {
		return nil
	}
	odds := steps[0].Odds
	for _, s := range steps {
		if final < s.Min {
			break
		}
		odds = s.Odds
	}
	return &odds
}

// incentiveFor maps a decision band to its fee adjustment.
func incentiveFor(table map[string]string, d domain.Decision) domain.Incentive {
	switch domain.Incentive(table[string(d)]) {
	case domain.IncentiveSurcharge:
		return domain.IncentiveSurcharge
	case domain.IncentiveSuppression:
		return domain.IncentiveSuppression
	default:
		return domain.IncentiveNone
	}
}
