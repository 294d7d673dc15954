package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionContext is the immutable input aggregate for one checkout
// evaluation. It is built once per request from validated input and never
// mutated afterwards; every component reads from it, none write to it.
type TransactionContext struct {
	// Core identifiers
	RequestID string `json:"requestId"`

	// Checkout details
	Cart     Cart     `json:"cart"`
	Merchant Merchant `json:"merchant"`
	Customer Customer `json:"customer"`

	// Optional environment signals
	Device *Device `json:"device,omitempty"`
	Geo    *Geo    `json:"geo,omitempty"`

	// Temporal
	Timestamp time.Time `json:"timestamp"`
}

// Cart holds the line items of a checkout and its computed total.
type Cart struct {
	Items    []CartItem      `json:"items,omitempty"`
	Currency string          `json:"currency"`
	Total    decimal.Decimal `json:"total"`
}

// CartItem is a single purchase line.
type CartItem struct {
	SKU       string          `json:"sku,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	MCC       string          `json:"mcc,omitempty"`
}

// ComputeTotal sums unit price times quantity over all items.
func (c *Cart) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Merchant identifies the accepting merchant.
type Merchant struct {
	Name string `json:"name"`
	MCC  string `json:"mcc"`

	// Ordered by preference, strongest first
	NetworkPreferences []string `json:"networkPreferences,omitempty"`

	Location *Geo `json:"location,omitempty"`
}

// Customer carries the account-level risk counters used by the evaluator.
type Customer struct {
	ID             string      `json:"id"`
	LoyaltyTier    LoyaltyTier `json:"loyaltyTier"`
	Velocity24h    int         `json:"velocity24h"`
	Chargebacks12m int         `json:"chargebacks12m"`
}

// Device describes the device the checkout originated from.
type Device struct {
	IP         string  `json:"ip,omitempty"`
	DeviceID   string  `json:"deviceId,omitempty"`
	DistanceKm float64 `json:"distanceKm,omitempty"`
	Location   *Geo    `json:"location,omitempty"`
}

// Geo is a resolved location. Used for the transaction geo, the merchant
// location and the device location.
type Geo struct {
	City        string       `json:"city,omitempty"`
	Region      string       `json:"region,omitempty"`
	Country     string       `json:"country,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Coordinates is a lat/lon pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LoyaltyTier is the customer's loyalty program tier.
type LoyaltyTier string

const (
	TierNone     LoyaltyTier = "NONE"
	TierSilver   LoyaltyTier = "SILVER"
	TierGold     LoyaltyTier = "GOLD"
	TierPlatinum LoyaltyTier = "PLATINUM"
	TierDiamond  LoyaltyTier = "DIAMOND"
)

// ValidTier reports whether t is a known loyalty tier.
func ValidTier(t LoyaltyTier) bool {
	switch t {
	case TierNone, TierSilver, TierGold, TierPlatinum, TierDiamond:
		return true
	}
	return false
}

// HasLocationData reports whether both device and transaction locations are
// present, i.e. whether the location mismatch check can run at all.
func (t *TransactionContext) HasLocationData() bool {
	return t.Device != nil && t.Device.Location != nil && t.Geo != nil
}

// LocationMismatch reports whether the device location disagrees with the
// transaction geo on city or country. Returns false when either side is
// missing; absence is handled separately via HasLocationData.
func (t *TransactionContext) LocationMismatch() bool {
	if !t.HasLocationData() {
		return false
	}
	dev, geo := t.Device.Location, t.Geo
	if dev.City != "" && geo.City != "" && !strings.EqualFold(dev.City, geo.City) {
		return true
	}
	if dev.Country != "" && geo.Country != "" && !strings.EqualFold(dev.Country, geo.Country) {
		return true
	}
	return false
}

// CrossBorder reports whether the transaction geo country differs from the
// merchant's country.
func (t *TransactionContext) CrossBorder() bool {
	if t.Geo == nil || t.Merchant.Location == nil {
		return false
	}
	if t.Geo.Country == "" || t.Merchant.Location.Country == "" {
		return false
	}
	return !strings.EqualFold(t.Geo.Country, t.Merchant.Location.Country)
}

// ScoreRequest is the API request payload for scoring a checkout.
type ScoreRequest struct {
	RequestID string        `json:"requestId,omitempty"`
	Cart      Cart          `json:"cart"`
	Merchant  Merchant      `json:"merchant"`
	Customer  CustomerInput `json:"customer"`
	Device    *Device       `json:"device,omitempty"`
	Geo       *Geo          `json:"geo,omitempty"`
}

// CustomerInput is the customer block of a ScoreRequest. Velocity24h is a
// pointer so the ingestion layer can distinguish "caller supplied zero" from
// "resolve from the velocity service".
type CustomerInput struct {
	ID             string      `json:"id"`
	LoyaltyTier    LoyaltyTier `json:"loyaltyTier,omitempty"`
	Velocity24h    *int        `json:"velocity24h,omitempty"`
	Chargebacks12m int         `json:"chargebacks12m,omitempty"`
}

// Validate checks the request for required fields. Required fields are never
// silently defaulted; a missing merchant category code or an empty cart is an
// error the caller must fix.
func (r *ScoreRequest) Validate() error {
	if r.Customer.ID == "" {
		return NewValidationError("customer.id", "required")
	}
	if r.Merchant.Name == "" {
		return NewValidationError("merchant.name", "required")
	}
	if r.Merchant.MCC == "" {
		return NewValidationError("merchant.mcc", "required")
	}
	if r.Cart.Currency == "" {
		return NewValidationError("cart.currency", "required")
	}
	if len(r.Cart.Currency) != 3 {
		return NewValidationError("cart.currency", "must be a 3-letter ISO code")
	}
	if len(r.Cart.Items) == 0 && r.Cart.Total.IsZero() {
		return NewValidationError("cart", "items or total required")
	}
	for i, item := range r.Cart.Items {
		if item.Quantity <= 0 {
			return NewValidationError(fmt.Sprintf("cart.items[%d].quantity", i), "must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return NewValidationError(fmt.Sprintf("cart.items[%d].unitPrice", i), "must not be negative")
		}
	}
	if len(r.Cart.Items) > 0 && !r.Cart.Total.IsZero() {
		if computed := r.Cart.ComputeTotal(); !r.Cart.Total.Equal(computed) {
			return NewValidationError("cart.total", fmt.Sprintf("does not match computed total %s", computed))
		}
	}
	if r.Customer.LoyaltyTier != "" && !ValidTier(r.Customer.LoyaltyTier) {
		return NewValidationError("customer.loyaltyTier", fmt.Sprintf("unknown tier %q", r.Customer.LoyaltyTier))
	}
	if r.Customer.Velocity24h != nil && *r.Customer.Velocity24h < 0 {
		return NewValidationError("customer.velocity24h", "must not be negative")
	}
	if r.Customer.Chargebacks12m < 0 {
		return NewValidationError("customer.chargebacks12m", "must not be negative")
	}
	return nil
}

// ToContext converts a validated request into a TransactionContext. The
// velocity argument is the resolved 24h transaction count; callers pass the
// request's own value when supplied, otherwise the velocity service's answer.
func (r *ScoreRequest) ToContext(requestID string, velocity int, now time.Time) *TransactionContext {
	cart := r.Cart
	if cart.Total.IsZero() {
		cart.Total = cart.ComputeTotal()
	}
	tier := r.Customer.LoyaltyTier
	if tier == "" {
		tier = TierNone
	}
	return &TransactionContext{
		RequestID: requestID,
		Cart:      cart,
		Merchant:  r.Merchant,
		Customer: Customer{
			ID:             r.Customer.ID,
			LoyaltyTier:    tier,
			Velocity24h:    velocity,
			Chargebacks12m: r.Customer.Chargebacks12m,
		},
		Device:    r.Device,
		Geo:       r.Geo,
		Timestamp: now.UTC(),
	}
}
