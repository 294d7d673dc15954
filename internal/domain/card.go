package domain

// Reward type values for CardMetadata.
const (
	RewardCashback = "cashback"
	RewardPoints   = "points"
)

// CardMetadata describes a candidate card in a customer's wallet.
type CardMetadata struct {
	ID      string `json:"id"`
	Issuer  string `json:"issuer"`
	Network string `json:"network"`
	Product string `json:"product,omitempty"`

	// IssuerFamily groups issuers for risk weighting, e.g. "major-bank",
	// "credit-union", "store-card"
	IssuerFamily string `json:"issuerFamily,omitempty"`

	// Rewards profile
	RewardType      string             `json:"rewardType,omitempty"` // "cashback" or "points"
	BaseRewardRate  float64            `json:"baseRewardRate"`
	CategoryBonuses map[string]float64 `json:"categoryBonuses,omitempty"` // MCC -> bonus rate

	// Signup bonus, prorated into the expected reward rate while eligible
	SignupBonusRate     float64 `json:"signupBonusRate,omitempty"`
	SignupBonusEligible bool    `json:"signupBonusEligible,omitempty"`

	// Active issuer promotions attached to this card
	PromotionIDs []string `json:"promotionIds,omitempty"`
}

// CardUtility is the composite ranking score for one candidate card. One per
// (card, request) pair.
type CardUtility struct {
	CardID           string  `json:"cardId"`
	PApproval        float64 `json:"pApproval"`
	ExpectedRewards  float64 `json:"expectedRewards"`
	PreferenceWeight float64 `json:"preferenceWeight"`
	MerchantPenalty  float64 `json:"merchantPenalty"`

	// Product of the four factors above
	UtilityScore float64 `json:"utilityScore"`
}
