// Package decision implements the terminal decision assembly: thresholding
// the final score into APPROVE/REVIEW/DECLINE, appending the triggered
// business rules, and computing the routing hint.
package decision

import (
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/risk"
)

// Engine selects the terminal decision once per request. Three terminal
// states, no further transitions.
type Engine struct{}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Input carries everything the decision needs. Checks are not re-evaluated
// here; the coarse score's triggered checks are appended as descriptive
// business rules.
type Input struct {
	Context *domain.TransactionContext
	Coarse  risk.CoarseScore
	Now     time.Time
}

// Decide assembles the decision contract for a scored request.
func (e *Engine) Decide(t *config.Tables, input *Input) *domain.DecisionContract {
	dt := &t.Risk.Decision
	final := input.Coarse.FinalScore

	decision := decide(dt, final)
	conf := confidence(dt, final, input.Context.HasLocationData())

	network, source := ResolveNetwork(&input.Context.Merchant)
	routing := domain.RoutingHint{
		PreferredNetwork:   network,
		PenaltyOrIncentive: incentiveFor(dt.Incentives, decision),
		ApprovalOdds:       approvalOdds(dt.OddsSteps, final),
		NetworkPreferences: input.Context.Merchant.NetworkPreferences,
		MCCHint:            MCCNetwork(input.Context.Merchant.MCC),
		Confidence:         conf,
	}

	rules := e.buildRules(input, decision, network, source)

	return &domain.DecisionContract{
		RequestID:  input.Context.RequestID,
		Decision:   decision,
		Rules:      rules,
		Reasons:    buildReasons(decision, final, rules),
		Routing:    routing,
		Confidence: conf,
		Timestamp:  input.Now.UTC(),
	}
}

// decide thresholds the final score. Higher scores never map to a worse
// decision.
func decide(dt *config.DecisionTable, final int) domain.Decision {
	switch {
	case final >= dt.ApproveThreshold:
		return domain.DecisionApprove
	case final >= dt.ReviewThreshold:
		return domain.DecisionReview
	default:
		return domain.DecisionDecline
	}
}

// adjustment is one conditional confidence delta. Confidence is folded from
// an explicit list, not ad hoc branches.
type adjustment struct {
	name    string
	delta   float64
	applies bool
}

func confidence(dt *config.DecisionTable, final int, hasLocation bool) float64 {
	p := dt.Confidence
	adjustments := []adjustment{
		{"extreme_score", p.ExtremeBonus, final >= p.ExtremeHigh || final <= p.ExtremeLow},
		{"near_threshold", -p.NearThresholdPenalty, nearThreshold(dt, p.ThresholdBandWidth, final)},
		{"missing_location", -p.MissingLocationPenalty, !hasLocation},
	}

	c := p.Base
	for _, a := range adjustments {
		if a.applies {
			c += a.delta
		}
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// nearThreshold reports whether the score sits inside the uncertainty band
// around either decision threshold.
func nearThreshold(dt *config.DecisionTable, width, final int) bool {
	return absInt(final-dt.ApproveThreshold) <= width || absInt(final-dt.ReviewThreshold) <= width
}

// buildRules appends one descriptive business rule per triggered coarse
// check, plus the loyalty boost, routing and decision-band observations.
// Order is fixed for deterministic output.
func (e *Engine) buildRules(input *Input, decision domain.Decision, network, source string) []domain.BusinessRule {
	tc := input.Context
	rules := make([]domain.BusinessRule, 0, len(input.Coarse.Checks)+3)

	for _, check := range input.Coarse.Checks {
		rules = append(rules, checkRule(tc, check))
	}

	if input.Coarse.LoyaltyBoost > 0 {
		rules = append(rules, domain.BusinessRule{
			Type:        domain.RuleLoyaltyBoost,
			ID:          "loyalty-boost-001",
			Description: fmt.Sprintf("%s tier adds %d to the final score", tc.Customer.LoyaltyTier, input.Coarse.LoyaltyBoost),
			Impact:      domain.ImpactPositive,
			Score:       float64(input.Coarse.LoyaltyBoost),
			Params: map[string]interface{}{
				"tier":  string(tc.Customer.LoyaltyTier),
				"boost": input.Coarse.LoyaltyBoost,
			},
		})
	}

	if network != domain.NetworkAny {
		rules = append(rules, domain.BusinessRule{
			Type:        domain.RuleNetworkRouting,
			ID:          "network-routing-001",
			Description: fmt.Sprintf("route via %s (%s)", network, source),
			Impact:      domain.ImpactNeutral,
			Params: map[string]interface{}{
				"network": network,
				"source":  source,
			},
		})
	}

	switch decision {
	case domain.DecisionDecline:
		rules = append(rules, domain.BusinessRule{
			Type:        domain.RuleFraudScreening,
			ID:          "fraud-screening-001",
			Description: "transaction screened out by risk checks",
			Impact:      domain.ImpactNegative,
			Score:       float64(input.Coarse.RiskScore),
		})
	case domain.DecisionReview:
		if hasCheck(input.Coarse.Checks, domain.SignalHighTicket) {
			rules = append(rules, domain.BusinessRule{
				Type:        domain.RuleKYCRequired,
				ID:          "kyc-required-001",
				Description: "high-ticket review requires identity verification",
				Impact:      domain.ImpactNeutral,
				Params: map[string]interface{}{
					"cartTotal": tc.Cart.Total.String(),
				},
			})
		}
	}

	return rules
}

// checkRule maps a triggered coarse check to its business rule.
func checkRule(tc *domain.TransactionContext, check risk.CheckResult) domain.BusinessRule {
	rule := domain.BusinessRule{
		Impact: domain.ImpactNegative,
		Score:  float64(check.Points),
	}
	switch check.Signal {
	case domain.SignalLocationMismatch:
		rule.Type = domain.RuleLocationMismatch
		rule.ID = "location-mismatch-001"
		rule.Description = "device location differs from transaction geo"
		rule.Params = map[string]interface{}{
			"deviceCity": tc.Device.Location.City,
			"geoCity":    tc.Geo.City,
		}
	case domain.SignalHighVelocity:
		rule.Type = domain.RuleHighVelocity
		rule.ID = "high-velocity-001"
		rule.Description = fmt.Sprintf("%d transactions in 24h", tc.Customer.Velocity24h)
		rule.Params = map[string]interface{}{
			"velocity24h": tc.Customer.Velocity24h,
		}
	case domain.SignalChargebackHistory:
		rule.Type = domain.RuleChargebackHistory
		rule.ID = "chargeback-history-001"
		rule.Description = fmt.Sprintf("%d chargebacks in 12 months", tc.Customer.Chargebacks12m)
		rule.Params = map[string]interface{}{
			"chargebacks12m": tc.Customer.Chargebacks12m,
		}
	case domain.SignalHighTicket:
		rule.Type = domain.RuleHighTicket
		rule.ID = "high-ticket-001"
		rule.Description = fmt.Sprintf("cart total %s %s exceeds the high-ticket threshold", tc.Cart.Total, tc.Cart.Currency)
		rule.Params = map[string]interface{}{
			"cartTotal": tc.Cart.Total.String(),
			"currency":  tc.Cart.Currency,
		}
	default:
		rule.Type = domain.RuleFraudScreening
		rule.ID = check.Signal
		rule.Description = check.Signal
	}
	return rule
}

// buildReasons extracts the human-readable reason list: the decision
// summary first, then every negative rule's description.
func buildReasons(decision domain.Decision, final int, rules []domain.BusinessRule) []string {
	reasons := []string{fmt.Sprintf("final score %d maps to %s", final, decision)}
	for _, r := range rules {
		if r.Impact == domain.ImpactNegative {
			reasons = append(reasons, r.Description)
		}
	}
	return reasons
}

func hasCheck(checks []risk.CheckResult, signal string) bool {
	for _, c := range checks {
		if c.Signal == signal {
			return true
		}
	}
	return false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
