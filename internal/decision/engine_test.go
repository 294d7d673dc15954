package decision

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/risk"
)

func baseContext() *domain.TransactionContext {
	return &domain.TransactionContext{
		RequestID: "req-001",
		Cart:      domain.Cart{Currency: "USD", Total: decimal.RequireFromString("100.00")},
		Merchant:  domain.Merchant{Name: "Fresh Mart", MCC: "5411"},
		Customer:  domain.Customer{ID: "cust-001", LoyaltyTier: domain.TierNone},
		Device:    &domain.Device{Location: &domain.Geo{City: "Austin", Country: "US"}},
		Geo:       &domain.Geo{City: "Austin", Country: "US"},
	}
}

func decideAt(t *testing.T, final int) *domain.DecisionContract {
	t.Helper()
	engine := NewEngine()
	return engine.Decide(config.Defaults(), &Input{
		Context: baseContext(),
		Coarse:  risk.CoarseScore{FinalScore: final},
		Now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
}

func TestDecideThresholds(t *testing.T) {
	cases := []struct {
		final int
		want  domain.Decision
	}{
		{105, domain.DecisionApprove},
		{70, domain.DecisionApprove},
		{69, domain.DecisionReview},
		{40, domain.DecisionReview},
		{39, domain.DecisionDecline},
		{0, domain.DecisionDecline},
	}
	for _, tc := range cases {
		if got := decideAt(t, tc.final).Decision; got != tc.want {
			t.Errorf("final %d: expected %s, got %s", tc.final, tc.want, got)
		}
	}
}

func TestDecisionMonotonicity(t *testing.T) {
	prev := -1
	for final := 0; final <= 120; final++ {
		rank := decideAt(t, final).Decision.Rank()
		if rank < prev {
			t.Fatalf("decision got worse as score rose at final %d", final)
		}
		prev = rank
	}
}

func TestConfidence(t *testing.T) {
	cases := []struct {
		name        string
		final       int
		hasLocation bool
		want        float64
	}{
		{"extreme high", 105, true, 0.95},
		{"extreme low", 15, true, 0.95},
		{"near approve threshold", 68, true, 0.6},
		{"near review threshold", 42, true, 0.6},
		{"plain mid band", 55, true, 0.8},
		{"missing location", 55, false, 0.7},
		{"extreme and missing location", 105, false, 0.85},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := NewEngine()
			ctx := baseContext()
			if !tc.hasLocation {
				ctx.Device = nil
			}
			contract := engine.Decide(config.Defaults(), &Input{
				Context: ctx,
				Coarse:  risk.CoarseScore{FinalScore: tc.final},
				Now:     time.Now(),
			})
			if diff := contract.Confidence - tc.want; diff > 1e-12 || diff < -1e-12 {
				t.Errorf("expected confidence %v, got %v", tc.want, contract.Confidence)
			}
		})
	}
}

func TestConfidenceClampedToZero(t *testing.T) {
	tables := config.Defaults()
	tables.Risk.Decision.Confidence.Base = 0.1

	engine := NewEngine()
	ctx := baseContext()
	ctx.Device = nil // -0.1 on top of the -0.2 threshold band
	contract := engine.Decide(tables, &Input{
		Context: ctx,
		Coarse:  risk.CoarseScore{FinalScore: 42},
		Now:     time.Now(),
	})
	if contract.Confidence != 0 {
		t.Errorf("expected clamp to 0, got %v", contract.Confidence)
	}
}

func TestBusinessRulesForRiskyContext(t *testing.T) {
	tables := config.Defaults()
	eval := risk.NewEvaluator()
	engine := NewEngine()

	ctx := &domain.TransactionContext{
		RequestID: "req-risky",
		Cart:      domain.Cart{Currency: "USD", Total: decimal.RequireFromString("899.99")},
		Merchant:  domain.Merchant{Name: "Gadget World", MCC: "5732"},
		Customer: domain.Customer{
			ID:             "cust-002",
			LoyaltyTier:    domain.TierNone,
			Velocity24h:    15,
			Chargebacks12m: 2,
		},
		Device: &domain.Device{Location: &domain.Geo{City: "Miami", Country: "US"}},
		Geo:    &domain.Geo{City: "Austin", Country: "US"},
	}

	contract := engine.Decide(tables, &Input{
		Context: ctx,
		Coarse:  eval.ScoreCoarse(tables, ctx),
		Now:     time.Now(),
	})

	if contract.Decision != domain.DecisionDecline {
		t.Fatalf("expected DECLINE, got %s", contract.Decision)
	}

	wantTypes := []domain.RuleType{
		domain.RuleLocationMismatch,
		domain.RuleHighVelocity,
		domain.RuleChargebackHistory,
		domain.RuleHighTicket,
		domain.RuleNetworkRouting, // 5732 maps to visa
		domain.RuleFraudScreening,
	}
	if len(contract.Rules) != len(wantTypes) {
		t.Fatalf("expected %d rules, got %d: %+v", len(wantTypes), len(contract.Rules), contract.Rules)
	}
	for i, want := range wantTypes {
		if contract.Rules[i].Type != want {
			t.Errorf("rule %d: expected %s, got %s", i, want, contract.Rules[i].Type)
		}
	}

	// Summary reason plus one per negative rule
	if len(contract.Reasons) != 6 {
		t.Errorf("expected 6 reasons, got %d: %v", len(contract.Reasons), contract.Reasons)
	}
}

func TestLoyaltyBoostRule(t *testing.T) {
	tables := config.Defaults()
	eval := risk.NewEvaluator()
	engine := NewEngine()

	ctx := baseContext()
	ctx.Customer.LoyaltyTier = domain.TierPlatinum

	contract := engine.Decide(tables, &Input{
		Context: ctx,
		Coarse:  eval.ScoreCoarse(tables, ctx),
		Now:     time.Now(),
	})

	var loyalty *domain.BusinessRule
	for i := range contract.Rules {
		if contract.Rules[i].Type == domain.RuleLoyaltyBoost {
			loyalty = &contract.Rules[i]
		}
	}
	if loyalty == nil {
		t.Fatal("expected a loyalty-boost rule")
	}
	if loyalty.Impact != domain.ImpactPositive {
		t.Errorf("expected positive impact, got %s", loyalty.Impact)
	}
	if loyalty.Score != 15 {
		t.Errorf("expected boost score 15, got %v", loyalty.Score)
	}
}

func TestKYCRequiredOnHighTicketReview(t *testing.T) {
	tables := config.Defaults()
	eval := risk.NewEvaluator()
	engine := NewEngine()

	// Chargebacks plus high ticket: risk 35, final 65, REVIEW
	ctx := baseContext()
	ctx.Cart.Total = decimal.RequireFromString("600.00")
	ctx.Customer.Chargebacks12m = 1

	coarse := eval.ScoreCoarse(tables, ctx)
	if coarse.FinalScore != 65 {
		t.Fatalf("fixture drifted: expected final 65, got %d", coarse.FinalScore)
	}

	contract := engine.Decide(tables, &Input{Context: ctx, Coarse: coarse, Now: time.Now()})
	if contract.Decision != domain.DecisionReview {
		t.Fatalf("expected REVIEW, got %s", contract.Decision)
	}

	found := false
	for _, r := range contract.Rules {
		if r.Type == domain.RuleKYCRequired {
			found = true
		}
	}
	if !found {
		t.Error("expected kyc-required rule on high-ticket review")
	}
}

func TestContractCarriesRequestIDAndTimestamp(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine()
	contract := engine.Decide(config.Defaults(), &Input{
		Context: baseContext(),
		Coarse:  risk.CoarseScore{FinalScore: 80},
		Now:     now,
	})

	if contract.RequestID != "req-001" {
		t.Errorf("expected request id req-001, got %s", contract.RequestID)
	}
	if !contract.Timestamp.Equal(now) {
		t.Errorf("expected timestamp %v, got %v", now, contract.Timestamp)
	}
}
