package scoring

import (
	"math"
	"testing"

	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
)

func merchantTables() *config.Tables {
	tables := config.Defaults()
	tables.Merchant.Merchants = []config.MerchantEntry{
		{Name: "Fresh Mart", MCC: "5411", Penalty: 0.85, Variants: []string{"FreshMart Inc"}},
		{Name: "Gadget World", MCC: "5732", Penalty: 0.90},
	}
	return tables
}

func checkoutAt(name, mcc string) *domain.TransactionContext {
	return &domain.TransactionContext{
		Merchant: domain.Merchant{Name: name, MCC: mcc},
		Customer: domain.Customer{ID: "cust-1"},
	}
}

func TestPenaltyExactMatch(t *testing.T) {
	mp := NewMerchantPenalty()
	got := mp.Penalty(merchantTables(), checkoutAt("Fresh Mart", "5411"))

	// Only the merchant tier resolves: 5411 has no family penalty and the
	// merchant declares no network preference
	if math.Abs(got-0.85) > 1e-12 {
		t.Errorf("expected exact-match penalty 0.85, got %v", got)
	}
}

func TestPenaltyExactMatchIgnoresCase(t *testing.T) {
	mp := NewMerchantPenalty()
	got := mp.Penalty(merchantTables(), checkoutAt("fresh mart", "5411"))
	if math.Abs(got-0.85) > 1e-12 {
		t.Errorf("expected case-insensitive match 0.85, got %v", got)
	}
}

func TestPenaltyFuzzyMatch(t *testing.T) {
	mp := NewMerchantPenalty()

	// "freshmart" is one edit from "fresh mart": similarity 0.9
	got := mp.Penalty(merchantTables(), checkoutAt("FreshMart", "5411"))
	if math.Abs(got-0.85) > 1e-12 {
		t.Errorf("expected fuzzy match penalty 0.85, got %v", got)
	}
}

func TestPenaltyFuzzyBelowThreshold(t *testing.T) {
	mp := NewMerchantPenalty()
	got := mp.Penalty(merchantTables(), checkoutAt("Completely Other Store", "5411"))
	if got != 1.0 {
		t.Errorf("no tier resolved, expected neutral 1.0, got %v", got)
	}
}

func TestPenaltyFuzzyRequiresSameMCC(t *testing.T) {
	mp := NewMerchantPenalty()
	// Name matches a 5411 entry but the MCC differs
	got := mp.Penalty(merchantTables(), checkoutAt("Fresh Mart", "5999"))
	if got != 1.0 {
		t.Errorf("MCC mismatch must not fuzzy-match, got %v", got)
	}
}

func TestPenaltyFamilyFallback(t *testing.T) {
	mp := NewMerchantPenalty()
	got := mp.Penalty(merchantTables(), checkoutAt("Lucky Spin Casino", "7995"))
	if math.Abs(got-0.80) > 1e-12 {
		t.Errorf("expected family penalty 0.80, got %v", got)
	}
}

func TestPenaltyNetworkFlag(t *testing.T) {
	mp := NewMerchantPenalty()
	tc := checkoutAt("Corner Store", "5999")
	tc.Merchant.NetworkPreferences = []string{"interlink", "visa"}

	got := mp.Penalty(merchantTables(), tc)
	if math.Abs(got-0.95) > 1e-12 {
		t.Errorf("expected network penalty 0.95, got %v", got)
	}
}

func TestPenaltyBlendsResolvedTiers(t *testing.T) {
	tables := merchantTables()
	tables.Merchant.Merchants = append(tables.Merchant.Merchants,
		config.MerchantEntry{Name: "Lucky Spin Casino", MCC: "7995", Penalty: 0.85})
	mp := NewMerchantPenalty()

	tc := checkoutAt("Lucky Spin Casino", "7995")
	tc.Merchant.NetworkPreferences = []string{"maestro"}

	got := mp.Penalty(tables, tc)
	want := 0.40*0.85 + 0.30*0.80 + 0.30*0.95
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("expected full blend %v, got %v", want, got)
	}
}

func TestPenaltyPartialBlendRenormalizes(t *testing.T) {
	mp := NewMerchantPenalty()
	tc := checkoutAt("Lucky Spin Casino", "7995")
	tc.Merchant.NetworkPreferences = []string{"maestro"}

	got := mp.Penalty(merchantTables(), tc)
	want := (0.30*0.80 + 0.30*0.95) / 0.60
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("expected renormalized blend %v, got %v", want, got)
	}
}

func TestPenaltyClampedToBounds(t *testing.T) {
	tables := merchantTables()
	tables.Merchant.Merchants[0].Penalty = 0.30
	mp := NewMerchantPenalty()

	got := mp.Penalty(tables, checkoutAt("Fresh Mart", "5411"))
	if got != 0.8 {
		t.Errorf("expected clamp to lower bound 0.8, got %v", got)
	}
}

func TestSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"fresh mart", "fresh mart", 1.0, 1.0},
		{"freshmart", "fresh mart", 0.9, 0.9},
		{"", "", 1.0, 1.0},
		{"abc", "xyz", 0.0, 0.0},
	}
	for _, c := range cases {
		got := similarity(c.a, c.b)
		if got < c.min-1e-12 || got > c.max+1e-12 {
			t.Errorf("similarity(%q,%q) = %v, expected in [%v,%v]", c.a, c.b, got, c.min, c.max)
		}
	}
}
