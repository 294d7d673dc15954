package config

import (
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Defaults returns the built-in table snapshot. Deployments override any
// subset of it through the table files; everything here is a safe neutral
// starting point.
func Defaults() *Tables {
	t := &Tables{
		Risk: RiskTable{
			Coarse: CoarseWeights{
				LocationMismatch:  30,
				HighVelocity:      20,
				ChargebackHistory: 25,
				HighTicket:        10,
			},
			LoyaltyBoosts: map[domain.LoyaltyTier]int{
				domain.TierNone:     0,
				domain.TierSilver:   5,
				domain.TierGold:     10,
				domain.TierPlatinum: 15,
				domain.TierDiamond:  20,
			},
			VelocityThreshold:   10,
			HighTicketThreshold: "500.00",

			Baseline: 2.2,
			Weights: LogOddsWeights{
				LocationMismatch:  -1.1,
				HighVelocity:      -0.8,
				ChargebackHistory: -1.3,
				HighTicket:        -0.5,
				CrossBorder:       -0.4,
			},
			CategoryWeights: map[string]float64{
				"5411": 0.1,  // grocery
				"5541": 0.05, // fuel
				"5732": -0.3, // electronics
				"5967": -0.7, // direct marketing
				"7995": -0.9, // gambling
				"4829": -0.6, // wire transfer
			},
			AmountBuckets: []AmountBucket{
				{Min: 0, Max: 100, Weight: 0.2},
				{Min: 100, Max: 500, Weight: 0},
				{Min: 500, Max: 1000, Weight: -0.3},
				{Min: 1000, Max: 0, Weight: -0.6},
			},
			IssuerFamilies: map[string]float64{
				"major-bank":   0.1,
				"credit-union": 0.05,
				"fintech":      -0.1,
				"store-card":   -0.4,
			},
			RiskTierByMCC: map[string]string{
				"7995": "high",
				"5967": "high",
				"4829": "elevated",
				"6051": "elevated",
			},
			MerchantRiskTiers: map[string]float64{
				"high":     -0.9,
				"elevated": -0.5,
				"standard": 0,
			},
			Calibration: CalibrationParams{
				Method: CalibrationLogistic,
				Scale:  1.0,
				Bias:   0.0,
				PMin:   0.01,
				PMax:   0.99,
			},
			Decision: DecisionTable{
				ApproveThreshold: 70,
				ReviewThreshold:  40,
				Confidence: ConfidenceParams{
					Base:                   0.8,
					ExtremeBonus:           0.15,
					ExtremeHigh:            90,
					ExtremeLow:             20,
					NearThresholdPenalty:   0.2,
					ThresholdBandWidth:     5,
					MissingLocationPenalty: 0.1,
				},
				OddsSteps: []OddsStep{
					{Min: 0, Odds: 0.05},
					{Min: 20, Odds: 0.15},
					{Min: 40, Odds: 0.45},
					{Min: 70, Odds: 0.80},
					{Min: 90, Odds: 0.95},
				},
				Incentives: map[string]string{
					string(domain.DecisionApprove): string(domain.IncentiveNone),
					string(domain.DecisionReview):  string(domain.IncentiveSurcharge),
					string(domain.DecisionDecline): string(domain.IncentiveSuppression),
				},
			},
		},
		Preference: PreferenceTable{
			TierMultipliers: map[domain.LoyaltyTier]float64{
				domain.TierNone:     1.00,
				domain.TierSilver:   1.05,
				domain.TierGold:     1.10,
				domain.TierPlatinum: 1.15,
				domain.TierDiamond:  1.20,
			},
			CategoryBoosts: map[string]float64{
				"5411": 1.05,
				"5541": 1.02,
				"5812": 1.08,
				"4511": 1.10,
				"7011": 1.07,
				"5732": 0.95,
			},
			PromotionMultipliers: map[string]float64{
				"grocery-5x":   1.10,
				"dining-boost": 1.08,
				"travel-elite": 1.12,
			},
			UserPreferences: UserPreferences{
				RewardType:       domain.RewardCashback,
				PreferredIssuers: []string{},
			},
			RewardTypeMatch: 1.15,
			IssuerAffinity:  1.10,
			SignupProration: 0.25,
			RewardsCap:      0.10,
			Bounds:          Bounds{Min: 0.5, Max: 1.5},
		},
		Merchant: MerchantTable{
			Merchants: []MerchantEntry{},
			FamilyPenalties: map[string]float64{
				"7995": 0.80,
				"5967": 0.85,
				"4829": 0.90,
				"6051": 0.90,
			},
			NetworkPenalties: map[string]float64{
				"interlink": 0.95,
				"maestro":   0.95,
				"accel":     0.95,
				"no-amex":   0.90,
			},
			SimilarityThreshold: 0.8,
			Bounds:              Bounds{Min: 0.8, Max: 1.0},
		},
		Source:   "defaults",
		LoadedAt: time.Now().UTC(),
	}
	return t
}
