package domain

import (
	"time"
)

// ScoreResult is the per-request scoring output. Derived once, never mutated
// after creation.
type ScoreResult struct {
	RequestID string `json:"requestId"`

	// Coarse model: bounded integers
	RiskScore    int `json:"riskScore"`    // 0-100
	LoyaltyBoost int `json:"loyaltyBoost"` // 0-50
	FinalScore   int `json:"finalScore"`   // 0-120, clamped

	// Routing shortcut resolved from merchant preference or the MCC table
	RoutingHint string `json:"routingHint"` // network id or "any"

	// Calibrated model: log-odds raw score and bounded probability
	RawScore  float64 `json:"rawScore"`
	PApproval float64 `json:"pApproval"`

	Attribution AdditiveAttribution `json:"attribution"`

	// Signals holds the raw check inputs keyed by signal name; JSON output
	// is stable because encoding/json sorts map keys.
	Signals map[string]float64 `json:"signals"`

	Timestamp time.Time `json:"timestamp"`
}

// Signal and feature names shared by the evaluator, the explainability view
// and the decision audit trail.
const (
	SignalLocationMismatch  = "location_mismatch"
	SignalHighVelocity      = "high_velocity"
	SignalChargebackHistory = "chargeback_history"
	SignalHighTicket        = "high_ticket"
	SignalCrossBorder       = "cross_border"
	SignalMerchantCategory  = "merchant_category"
	SignalAmountBucket      = "amount_bucket"
	SignalIssuerFamily      = "issuer_family"
	SignalMerchantRiskTier  = "merchant_risk_tier"
	SignalVelocity24h       = "velocity_24h"
	SignalChargebacks12m    = "chargebacks_12m"
	SignalCartTotal         = "cart_total"
)

// NetworkAny is the routing hint when no network preference resolves.
const NetworkAny = "any"
