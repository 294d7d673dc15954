package domain

import (
	"time"
)

// Decision is the terminal categorical outcome for a request.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReview  Decision = "REVIEW"
	DecisionDecline Decision = "DECLINE"
)

// Rank orders decisions from worst to best: DECLINE < REVIEW < APPROVE.
func (d Decision) Rank() int {
	switch d {
	case DecisionApprove:
		return 2
	case DecisionReview:
		return 1
	default:
		return 0
	}
}

// RuleType enumerates the business rule kinds attached to decisions.
type RuleType string

const (
	RuleLocationMismatch  RuleType = "location-mismatch"
	RuleHighVelocity      RuleType = "high-velocity"
	RuleChargebackHistory RuleType = "chargeback-history"
	RuleHighTicket        RuleType = "high-ticket"
	RuleLoyaltyBoost      RuleType = "loyalty-boost"
	RuleKYCRequired       RuleType = "kyc-required"
	RuleNetworkRouting    RuleType = "network-routing"
	RuleFraudScreening    RuleType = "fraud-screening"
)

// Impact classifies how a business rule moved the decision.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// BusinessRule records one triggered condition for audit. Purely
// descriptive; nothing downstream re-evaluates it.
type BusinessRule struct {
	Type        RuleType               `json:"type"`
	ID          string                 `json:"id"`
	Description string                 `json:"description"`
	Impact      Impact                 `json:"impact"`
	Score       float64                `json:"score"`
	Params      map[string]interface{} `json:"params,omitempty"`
}

// Incentive is the fee adjustment attached to a routing hint.
type Incentive string

const (
	IncentiveSurcharge   Incentive = "surcharge"
	IncentiveSuppression Incentive = "suppression"
	IncentiveNone        Incentive = "none"
)

// RoutingHint is the network/acquirer guidance attached to a decision.
type RoutingHint struct {
	PreferredNetwork   string    `json:"preferredNetwork"`
	PreferredAcquirer  string    `json:"preferredAcquirer,omitempty"`
	PenaltyOrIncentive Incentive `json:"penaltyOrIncentive"`
	ApprovalOdds       *float64  `json:"approvalOdds,omitempty"`
	NetworkPreferences []string  `json:"networkPreferences,omitempty"`
	MCCHint            string    `json:"mccHint,omitempty"`
	Confidence         float64   `json:"confidence"`
}

// DecisionContract is the terminal output object handed to the API, CLI,
// webhook and analytics collaborators. Never mutated after construction.
type DecisionContract struct {
	RequestID  string         `json:"requestId"`
	Decision   Decision       `json:"decision"`
	Rules      []BusinessRule `json:"rules"`
	Reasons    []string       `json:"reasons"`
	Routing    RoutingHint    `json:"routing"`
	Confidence float64        `json:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
}
