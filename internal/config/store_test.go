package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultsValidate(t *testing.T) {
	tables := Defaults()
	if err := tables.Validate(); err != nil {
		t.Fatalf("default tables must validate: %v", err)
	}

	if tables.Risk.Coarse.LocationMismatch != 30 {
		t.Errorf("expected location mismatch weight 30, got %d", tables.Risk.Coarse.LocationMismatch)
	}
	if boost := tables.Risk.LoyaltyBoost(domain.TierPlatinum); boost != 15 {
		t.Errorf("expected PLATINUM boost 15, got %d", boost)
	}
	if !tables.Risk.TicketThreshold().Equal(decimal.RequireFromString("500.00")) {
		t.Errorf("expected ticket threshold 500.00, got %s", tables.Risk.TicketThreshold())
	}
}

func TestStoreDefaultsWhenNoDir(t *testing.T) {
	store, err := NewStore("", quietLogger())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	snap := store.Snapshot()
	if snap.Source != "defaults" {
		t.Errorf("expected defaults source, got %s", snap.Source)
	}
}

func TestStoreLoadsTableFiles(t *testing.T) {
	dir := t.TempDir()
	risk := `
coarse:
  locationMismatch: 40
velocityThreshold: 5
decision:
  approveThreshold: 80
`
	if err := os.WriteFile(filepath.Join(dir, RiskFile), []byte(risk), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := NewStore(dir, quietLogger())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	snap := store.Snapshot()
	if snap.Risk.Coarse.LocationMismatch != 40 {
		t.Errorf("expected overridden weight 40, got %d", snap.Risk.Coarse.LocationMismatch)
	}
	// Untouched keys keep their defaults
	if snap.Risk.Coarse.HighVelocity != 20 {
		t.Errorf("expected default weight 20, got %d", snap.Risk.Coarse.HighVelocity)
	}
	if snap.Risk.VelocityThreshold != 5 {
		t.Errorf("expected velocity threshold 5, got %d", snap.Risk.VelocityThreshold)
	}
	if snap.Risk.Decision.ApproveThreshold != 80 {
		t.Errorf("expected approve threshold 80, got %d", snap.Risk.Decision.ApproveThreshold)
	}
	if snap.Source != dir {
		t.Errorf("expected source %s, got %s", dir, snap.Source)
	}
}

func TestReloadSwapsSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	before := store.Snapshot()

	risk := "velocityThreshold: 3\n"
	if err := os.WriteFile(filepath.Join(dir, RiskFile), []byte(risk), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	after := store.Snapshot()
	if after.Risk.VelocityThreshold != 3 {
		t.Errorf("expected reloaded threshold 3, got %d", after.Risk.VelocityThreshold)
	}
	// The snapshot held before the reload stays intact for in-flight work
	if before.Risk.VelocityThreshold != 10 {
		t.Errorf("previous snapshot mutated: %d", before.Risk.VelocityThreshold)
	}
	if store.Reloads() != 1 {
		t.Errorf("expected 1 recorded reload, got %d", store.Reloads())
	}
}

func TestReloadRejectsInvalidTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	bad := "decision:\n  reviewThreshold: 90\n"
	if err := os.WriteFile(filepath.Join(dir, RiskFile), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Reload(); err == nil {
		t.Fatal("expected reload to reject reviewThreshold above approveThreshold")
	}
	// Previous snapshot survives the failed reload
	if store.Snapshot().Risk.Decision.ReviewThreshold != 40 {
		t.Errorf("expected previous threshold 40, got %d", store.Snapshot().Risk.Decision.ReviewThreshold)
	}
}

func TestValidateRejectsBadCalibration(t *testing.T) {
	tables := Defaults()
	tables.Risk.Calibration.Method = "spline"
	if err := tables.Validate(); err == nil {
		t.Error("expected unknown calibration method to be rejected")
	}

	tables = Defaults()
	tables.Risk.Calibration.PMin = 0.99
	tables.Risk.Calibration.PMax = 0.01
	if err := tables.Validate(); err == nil {
		t.Error("expected inverted probability bounds to be rejected")
	}
}

func TestValidateRejectsUnorderedOddsSteps(t *testing.T) {
	tables := Defaults()
	tables.Risk.Decision.OddsSteps = []OddsStep{
		{Min: 0, Odds: 0.5},
		{Min: 50, Odds: 0.3},
	}
	if err := tables.Validate(); err == nil {
		t.Error("expected decreasing odds to be rejected")
	}
}

func TestLookupFallbacks(t *testing.T) {
	tables := Defaults()

	if w := tables.Preference.CategoryBoost("9999"); w != 1.0 {
		t.Errorf("unknown MCC boost should be neutral 1.0, got %v", w)
	}
	if w := tables.Risk.CategoryWeight("9999"); w != 0 {
		t.Errorf("unknown MCC weight should be neutral 0, got %v", w)
	}
	if w := tables.Risk.RiskTierWeight("9999"); w != 0 {
		t.Errorf("unmapped merchant tier should be neutral 0, got %v", w)
	}
	if m := tables.Preference.TierMultiplier("BRONZE"); m != 1.0 {
		t.Errorf("unknown tier multiplier should be neutral 1.0, got %v", m)
	}
}

func TestAmountWeightBuckets(t *testing.T) {
	tables := Defaults()

	cases := []struct {
		total  string
		weight float64
	}{
		{"45.99", 0.2},
		{"100.00", 0},
		{"499.99", 0},
		{"500.00", -0.3},
		{"899.99", -0.3},
		{"1000.00", -0.6},
		{"25000.00", -0.6},
	}
	for _, tc := range cases {
		got := tables.Risk.AmountWeight(decimal.RequireFromString(tc.total))
		if got != tc.weight {
			t.Errorf("total %s: expected weight %v, got %v", tc.total, tc.weight, got)
		}
	}
}

func TestBoundsClamp(t *testing.T) {
	b := Bounds{Min: 0.5, Max: 1.5}
	if v := b.Clamp(0.2); v != 0.5 {
		t.Errorf("expected clamp to 0.5, got %v", v)
	}
	if v := b.Clamp(2.0); v != 1.5 {
		t.Errorf("expected clamp to 1.5, got %v", v)
	}
	if v := b.Clamp(1.0); v != 1.0 {
		t.Errorf("expected passthrough 1.0, got %v", v)
	}
}
