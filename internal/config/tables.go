// Package config loads and holds the external scoring tables: risk and
// calibration weights, preference and loyalty multipliers, and merchant
// penalty tables. Tables are immutable once loaded; reload swaps the whole
// snapshot atomically so in-flight requests never see a torn read.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Tables is one immutable configuration snapshot. Components receive a
// snapshot per request and must not retain it across requests.
type Tables struct {
	Risk       RiskTable       `mapstructure:"risk" json:"risk"`
	Preference PreferenceTable `mapstructure:"preference" json:"preference"`
	Merchant   MerchantTable   `mapstructure:"merchant" json:"merchant"`

	// Provenance
	Source   string    `mapstructure:"-" json:"source"`
	LoadedAt time.Time `mapstructure:"-" json:"loadedAt"`
}

// RiskTable parameterizes both scoring strategies: the coarse 0-100 risk
// score and the log-odds model behind the calibrated probability. It also
// carries the decision thresholds derived from the same scores.
type RiskTable struct {
	// Coarse model: fixed additions per triggered check
	Coarse CoarseWeights `mapstructure:"coarse" json:"coarse"`

	// Loyalty boost added to the inverted risk score, by tier
	LoyaltyBoosts map[domain.LoyaltyTier]int `mapstructure:"loyaltyBoosts" json:"loyaltyBoosts"`

	// Check thresholds shared by both strategies
	VelocityThreshold   int    `mapstructure:"velocityThreshold" json:"velocityThreshold"`
	HighTicketThreshold string `mapstructure:"highTicketThreshold" json:"highTicketThreshold"`

	// Log-odds model
	Baseline          float64            `mapstructure:"baseline" json:"baseline"`
	Weights           LogOddsWeights     `mapstructure:"weights" json:"weights"`
	CategoryWeights   map[string]float64 `mapstructure:"categoryWeights" json:"categoryWeights"`
	AmountBuckets     []AmountBucket     `mapstructure:"amountBuckets" json:"amountBuckets"`
	IssuerFamilies    map[string]float64 `mapstructure:"issuerFamilies" json:"issuerFamilies"`
	RiskTierByMCC     map[string]string  `mapstructure:"riskTierByMcc" json:"riskTierByMcc"`
	MerchantRiskTiers map[string]float64 `mapstructure:"merchantRiskTiers" json:"merchantRiskTiers"`

	Calibration CalibrationParams `mapstructure:"calibration" json:"calibration"`
	Decision    DecisionTable     `mapstructure:"decision" json:"decision"`

	ticketThreshold decimal.Decimal
}

// CoarseWeights are the fixed risk-score additions for the coarse model.
type CoarseWeights struct {
	LocationMismatch  int `mapstructure:"locationMismatch" json:"locationMismatch"`
	HighVelocity      int `mapstructure:"highVelocity" json:"highVelocity"`
	ChargebackHistory int `mapstructure:"chargebackHistory" json:"chargebackHistory"`
	HighTicket        int `mapstructure:"highTicket" json:"highTicket"`
}

// LogOddsWeights are the signed per-check contributions on the log-odds
// scale. Risk factors carry negative values; the baseline carries the
// approval mass they subtract from.
type LogOddsWeights struct {
	LocationMismatch  float64 `mapstructure:"locationMismatch" json:"locationMismatch"`
	HighVelocity      float64 `mapstructure:"highVelocity" json:"highVelocity"`
	ChargebackHistory float64 `mapstructure:"chargebackHistory" json:"chargebackHistory"`
	HighTicket        float64 `mapstructure:"highTicket" json:"highTicket"`
	CrossBorder       float64 `mapstructure:"crossBorder" json:"crossBorder"`
}

// AmountBucket maps a cart-total range to a log-odds weight. Max zero means
// unbounded.
type AmountBucket struct {
	Min    float64 `mapstructure:"min" json:"min"`
	Max    float64 `mapstructure:"max" json:"max"`
	Weight float64 `mapstructure:"weight" json:"weight"`
}

// Calibration method names.
const (
	CalibrationLogistic = "logistic"
	CalibrationIsotonic = "isotonic"
)

// CalibrationParams selects and parameterizes the raw-score calibration.
type CalibrationParams struct {
	Method string  `mapstructure:"method" json:"method"`
	Scale  float64 `mapstructure:"scale" json:"scale"`
	Bias   float64 `mapstructure:"bias" json:"bias"`
	PMin   float64 `mapstructure:"pMin" json:"pMin"`
	PMax   float64 `mapstructure:"pMax" json:"pMax"`
}

// DecisionTable holds thresholds and the score-derived routing mappings.
type DecisionTable struct {
	ApproveThreshold int `mapstructure:"approveThreshold" json:"approveThreshold"`
	ReviewThreshold  int `mapstructure:"reviewThreshold" json:"reviewThreshold"`

	Confidence ConfidenceParams `mapstructure:"confidence" json:"confidence"`

	// Monotone step function: final score -> approval odds
	OddsSteps []OddsStep `mapstructure:"oddsSteps" json:"oddsSteps"`

	// Decision -> fee adjustment
	Incentives map[string]string `mapstructure:"incentives" json:"incentives"`
}

// ConfidenceParams derive decision confidence from the final score.
type ConfidenceParams struct {
	Base                   float64 `mapstructure:"base" json:"base"`
	ExtremeBonus           float64 `mapstructure:"extremeBonus" json:"extremeBonus"`
	ExtremeHigh            int     `mapstructure:"extremeHigh" json:"extremeHigh"`
	ExtremeLow             int     `mapstructure:"extremeLow" json:"extremeLow"`
	NearThresholdPenalty   float64 `mapstructure:"nearThresholdPenalty" json:"nearThresholdPenalty"`
	ThresholdBandWidth     int     `mapstructure:"thresholdBandWidth" json:"thresholdBandWidth"`
	MissingLocationPenalty float64 `mapstructure:"missingLocationPenalty" json:"missingLocationPenalty"`
}

// OddsStep maps final scores at or above Min to an approval odds value.
type OddsStep struct {
	Min  int     `mapstructure:"min" json:"min"`
	Odds float64 `mapstructure:"odds" json:"odds"`
}

// PreferenceTable parameterizes the per-card preference weighting.
type PreferenceTable struct {
	TierMultipliers      map[domain.LoyaltyTier]float64 `mapstructure:"tierMultipliers" json:"tierMultipliers"`
	CategoryBoosts       map[string]float64             `mapstructure:"categoryBoosts" json:"categoryBoosts"`
	PromotionMultipliers map[string]float64             `mapstructure:"promotionMultipliers" json:"promotionMultipliers"`

	// User preference defaults applied when the wallet carries no explicit
	// preference
	UserPreferences UserPreferences `mapstructure:"userPreferences" json:"userPreferences"`

	// Multipliers applied when a card matches a user preference
	RewardTypeMatch float64 `mapstructure:"rewardTypeMatch" json:"rewardTypeMatch"`
	IssuerAffinity  float64 `mapstructure:"issuerAffinity" json:"issuerAffinity"`

	// Signup bonus proration factor for expected rewards
	SignupProration float64 `mapstructure:"signupProration" json:"signupProration"`

	// Expected rewards cap
	RewardsCap float64 `mapstructure:"rewardsCap" json:"rewardsCap"`

	Bounds Bounds `mapstructure:"bounds" json:"bounds"`
}

// UserPreferences are the configured cashback-vs-points and issuer
// preferences.
type UserPreferences struct {
	RewardType       string   `mapstructure:"rewardType" json:"rewardType"`
	PreferredIssuers []string `mapstructure:"preferredIssuers" json:"preferredIssuers"`
}

// MerchantTable parameterizes merchant penalty resolution.
type MerchantTable struct {
	Merchants []MerchantEntry `mapstructure:"merchants" json:"merchants"`

	// MCC family fallback penalties
	FamilyPenalties map[string]float64 `mapstructure:"familyPenalties" json:"familyPenalties"`

	// Network-preference flag penalties, keyed by the flags merchants
	// declare in their network preference list
	NetworkPenalties map[string]float64 `mapstructure:"networkPenalties" json:"networkPenalties"`

	// Fuzzy name matching threshold in [0,1]
	SimilarityThreshold float64 `mapstructure:"similarityThreshold" json:"similarityThreshold"`

	Bounds Bounds `mapstructure:"bounds" json:"bounds"`
}

// MerchantEntry is a merchant-specific penalty keyed by name and MCC, with
// known name variants for fuzzy matching.
type MerchantEntry struct {
	Name     string   `mapstructure:"name" json:"name"`
	MCC      string   `mapstructure:"mcc" json:"mcc"`
	Penalty  float64  `mapstructure:"penalty" json:"penalty"`
	Variants []string `mapstructure:"variants" json:"variants"`
}

// Bounds is a closed clamp interval.
type Bounds struct {
	Min float64 `mapstructure:"min" json:"min"`
	Max float64 `mapstructure:"max" json:"max"`
}

// Clamp returns v forced into the interval.
func (b Bounds) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// TicketThreshold returns the parsed high-ticket threshold.
func (r *RiskTable) TicketThreshold() decimal.Decimal {
	return r.ticketThreshold
}

// LoyaltyBoost returns the score boost for a tier, zero for unknown tiers.
func (r *RiskTable) LoyaltyBoost(tier domain.LoyaltyTier) int {
	return r.LoyaltyBoosts[tier]
}

// CategoryWeight returns the log-odds weight for an MCC; misses are neutral.
func (r *RiskTable) CategoryWeight(mcc string) float64 {
	return r.CategoryWeights[mcc]
}

// AmountWeight returns the log-odds weight of the bucket containing total.
// No matching bucket is neutral.
func (r *RiskTable) AmountWeight(total decimal.Decimal) float64 {
	v, _ := total.Float64()
	for _, b := range r.AmountBuckets {
		if v < b.Min {
			continue
		}
		if b.Max > 0 && v >= b.Max {
			continue
		}
		return b.Weight
	}
	return 0
}

// RiskTierWeight resolves a merchant's risk tier from its MCC and returns
// the tier weight; unmapped merchants are neutral.
func (r *RiskTable) RiskTierWeight(mcc string) float64 {
	tier, ok := r.RiskTierByMCC[mcc]
	if !ok {
		return 0
	}
	return r.MerchantRiskTiers[tier]
}

// TierMultiplier returns the preference multiplier for a loyalty tier,
// neutral for unknown tiers.
func (p *PreferenceTable) TierMultiplier(tier domain.LoyaltyTier) float64 {
	if m, ok := p.TierMultipliers[tier]; ok {
		return m
	}
	return 1.0
}

// CategoryBoost returns the multiplier for an MCC. Unknown codes fall back
// to neutral 1.0.
func (p *PreferenceTable) CategoryBoost(mcc string) float64 {
	if m, ok := p.CategoryBoosts[mcc]; ok {
		return m
	}
	return 1.0
}

// Validate checks a snapshot for internal consistency and normalizes the
// parsed fields. Called on every load and reload; a table that fails here is
// never swapped in.
func (t *Tables) Validate() error {
	if err := t.Risk.validate(); err != nil {
		return fmt.Errorf("risk table: %w", err)
	}
	if err := t.Preference.validate(); err != nil {
		return fmt.Errorf("preference table: %w", err)
	}
	if err := t.Merchant.validate(); err != nil {
		return fmt.Errorf("merchant table: %w", err)
	}
	return nil
}

func (r *RiskTable) validate() error {
	th, err := decimal.NewFromString(r.HighTicketThreshold)
	if err != nil {
		return fmt.Errorf("highTicketThreshold %q: %w", r.HighTicketThreshold, err)
	}
	if th.IsNegative() {
		return fmt.Errorf("highTicketThreshold must not be negative")
	}
	r.ticketThreshold = th

	if r.VelocityThreshold < 0 {
		return fmt.Errorf("velocityThreshold must not be negative")
	}

	switch r.Calibration.Method {
	case CalibrationLogistic, CalibrationIsotonic:
	default:
		return fmt.Errorf("unknown calibration method %q", r.Calibration.Method)
	}
	if r.Calibration.PMin < 0 || r.Calibration.PMax > 1 || r.Calibration.PMin >= r.Calibration.PMax {
		return fmt.Errorf("calibration bounds [%v,%v] invalid", r.Calibration.PMin, r.Calibration.PMax)
	}

	d := r.Decision
	if d.ReviewThreshold >= d.ApproveThreshold {
		return fmt.Errorf("reviewThreshold %d must be below approveThreshold %d", d.ReviewThreshold, d.ApproveThreshold)
	}
	for i := 1; i < len(d.OddsSteps); i++ {
		if d.OddsSteps[i].Min <= d.OddsSteps[i-1].Min {
			return fmt.Errorf("oddsSteps must be strictly increasing by min score")
		}
		if d.OddsSteps[i].Odds < d.OddsSteps[i-1].Odds {
			return fmt.Errorf("oddsSteps odds must be non-decreasing")
		}
	}
	for _, s := range d.OddsSteps {
		if s.Odds < 0 || s.Odds > 1 {
			return fmt.Errorf("odds %v out of [0,1]", s.Odds)
		}
	}
	return nil
}

func (p *PreferenceTable) validate() error {
	if p.Bounds.Min <= 0 || p.Bounds.Min >= p.Bounds.Max {
		return fmt.Errorf("bounds [%v,%v] invalid", p.Bounds.Min, p.Bounds.Max)
	}
	if p.RewardsCap <= 0 {
		return fmt.Errorf("rewardsCap must be positive")
	}
	if p.SignupProration < 0 || p.SignupProration > 1 {
		return fmt.Errorf("signupProration %v out of [0,1]", p.SignupProration)
	}
	return nil
}

func (m *MerchantTable) validate() error {
	if m.Bounds.Min <= 0 || m.Bounds.Min >= m.Bounds.Max {
		return fmt.Errorf("bounds [%v,%v] invalid", m.Bounds.Min, m.Bounds.Max)
	}
	if m.SimilarityThreshold < 0 || m.SimilarityThreshold > 1 {
		return fmt.Errorf("similarityThreshold %v out of [0,1]", m.SimilarityThreshold)
	}
	for _, e := range m.Merchants {
		if e.Name == "" || e.MCC == "" {
			return fmt.Errorf("merchant entry requires name and mcc")
		}
	}
	return nil
}
