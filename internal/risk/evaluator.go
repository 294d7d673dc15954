// Package risk implements the deterministic risk checks behind both scoring
// strategies: the coarse 0-100 risk score and the log-odds raw score feeding
// the calibrated approval probability. Both strategies read the same checks;
// they are maintained as two named models and are not assumed to agree.
package risk

import (
	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Evaluator applies the fixed, enumerable set of checks to a transaction
// context. It is stateless; all parameters come from the table snapshot
// passed to each call, so one request can never straddle a reload.
type Evaluator struct{}

// NewEvaluator creates an Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// CheckResult is one triggered coarse check.
type CheckResult struct {
	Signal string `json:"signal"`
	Points int    `json:"points"`
}

// CoarseScore is the output of the coarse strategy.
type CoarseScore struct {
	RiskScore    int           `json:"riskScore"`    // 0-100
	LoyaltyBoost int           `json:"loyaltyBoost"` // 0-50
	FinalScore   int           `json:"finalScore"`   // 0-120
	Checks       []CheckResult `json:"checks"`       // triggered, in evaluation order
}

// ScoreCoarse runs the coarse strategy: fixed point additions per triggered
// check, inverted into an approval-oriented score and boosted by loyalty
// tier.
func (e *Evaluator) ScoreCoarse(t *config.Tables, tc *domain.TransactionContext) CoarseScore {
	w := t.Risk.Coarse
	var checks []CheckResult

	if tc.LocationMismatch() {
		checks = append(checks, CheckResult{Signal: domain.SignalLocationMismatch, Points: w.LocationMismatch})
	}
	if tc.Customer.Velocity24h > t.Risk.VelocityThreshold {
		checks = append(checks, CheckResult{Signal: domain.SignalHighVelocity, Points: w.HighVelocity})
	}
	if tc.Customer.Chargebacks12m > 0 {
		checks = append(checks, CheckResult{Signal: domain.SignalChargebackHistory, Points: w.ChargebackHistory})
	}
	if tc.Cart.Total.GreaterThanOrEqual(t.Risk.TicketThreshold()) {
		checks = append(checks, CheckResult{Signal: domain.SignalHighTicket, Points: w.HighTicket})
	}

	risk := 0
	for _, c := range checks {
		risk += c.Points
	}
	risk = clampInt(risk, 0, 100)

	boost := clampInt(t.Risk.LoyaltyBoost(tc.Customer.LoyaltyTier), 0, 50)

	final := 100 - risk
	if final < 0 {
		final = 0
	}
	final = clampInt(final+boost, 0, 120)

	return CoarseScore{
		RiskScore:    risk,
		LoyaltyBoost: boost,
		FinalScore:   final,
		Checks:       checks,
	}
}

// Evaluate runs the log-odds strategy and returns the additive attribution.
// Contributions appear in a fixed order; untriggered checks contribute zero
// and are counted in the sum before being filtered from the output. Same
// context and snapshot always yield bit-identical output.
func (e *Evaluator) Evaluate(t *config.Tables, tc *domain.TransactionContext) domain.AdditiveAttribution {
	w := t.Risk.Weights
	contribs := []domain.FeatureContribution{
		{Feature: domain.SignalLocationMismatch, Value: triggered(tc.LocationMismatch(), w.LocationMismatch)},
		{Feature: domain.SignalHighVelocity, Value: triggered(tc.Customer.Velocity24h > t.Risk.VelocityThreshold, w.HighVelocity)},
		{Feature: domain.SignalChargebackHistory, Value: triggered(tc.Customer.Chargebacks12m > 0, w.ChargebackHistory)},
		{Feature: domain.SignalHighTicket, Value: triggered(tc.Cart.Total.GreaterThanOrEqual(t.Risk.TicketThreshold()), w.HighTicket)},
		{Feature: domain.SignalCrossBorder, Value: triggered(tc.CrossBorder(), w.CrossBorder)},
		{Feature: domain.SignalMerchantCategory, Value: t.Risk.CategoryWeight(tc.Merchant.MCC)},
		{Feature: domain.SignalAmountBucket, Value: t.Risk.AmountWeight(tc.Cart.Total)},
		{Feature: domain.SignalMerchantRiskTier, Value: t.Risk.RiskTierWeight(tc.Merchant.MCC)},
	}
	return domain.NewAdditiveAttribution(t.Risk.Baseline, contribs)
}

// CardAdjustment returns the issuer-family log-odds adjustment for a
// candidate card. Cards without a mapped family are neutral.
func (e *Evaluator) CardAdjustment(t *config.Tables, card *domain.CardMetadata) float64 {
	if card == nil || card.IssuerFamily == "" {
		return 0
	}
	return t.Risk.IssuerFamilies[card.IssuerFamily]
}

// Signals echoes the raw check inputs for the score output. Keys are the
// shared signal names; values are counts or 0/1 indicators.
func (e *Evaluator) Signals(t *config.Tables, tc *domain.TransactionContext) map[string]float64 {
	total, _ := tc.Cart.Total.Float64()
	return map[string]float64{
		domain.SignalLocationMismatch:  indicator(tc.LocationMismatch()),
		domain.SignalHighVelocity:      indicator(tc.Customer.Velocity24h > t.Risk.VelocityThreshold),
		domain.SignalChargebackHistory: indicator(tc.Customer.Chargebacks12m > 0),
		domain.SignalHighTicket:        indicator(tc.Cart.Total.GreaterThanOrEqual(t.Risk.TicketThreshold())),
		domain.SignalCrossBorder:       indicator(tc.CrossBorder()),
		domain.SignalVelocity24h:       float64(tc.Customer.Velocity24h),
		domain.SignalChargebacks12m:    float64(tc.Customer.Chargebacks12m),
		domain.SignalCartTotal:         total,
	}
}

func triggered(on bool, weight float64) float64 {
	if on {
		return weight
	}
	return 0
}

func indicator(on bool) float64 {
	if on {
		return 1
	}
	return 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
