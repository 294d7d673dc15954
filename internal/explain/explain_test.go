package explain

import (
	"errors"
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func sampleAttribution() domain.AdditiveAttribution {
	return domain.NewAdditiveAttribution(2.0, []domain.FeatureContribution{
		{Feature: "merchant_category", Value: 0.1},
		{Feature: "amount_bucket", Value: 0.2},
		{Feature: "location_mismatch", Value: -1.1},
		{Feature: "chargeback_history", Value: -1.3},
		{Feature: "high_velocity", Value: -0.8},
		{Feature: "high_ticket", Value: -0.5},
		{Feature: "cross_border", Value: 0.0},
	})
}

func TestTopDriversOrdering(t *testing.T) {
	engine := NewEngine()
	drivers, err := engine.TopDrivers(sampleAttribution(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantPos := []string{"amount_bucket", "merchant_category"}
	if len(drivers.Positive) != len(wantPos) {
		t.Fatalf("expected %d positive drivers, got %d", len(wantPos), len(drivers.Positive))
	}
	for i, f := range wantPos {
		if drivers.Positive[i].Feature != f {
			t.Errorf("positive %d: expected %s, got %s", i, f, drivers.Positive[i].Feature)
		}
	}

	// Most negative first, truncated to k
	wantNeg := []string{"chargeback_history", "location_mismatch", "high_velocity"}
	if len(drivers.Negative) != len(wantNeg) {
		t.Fatalf("expected %d negative drivers, got %d", len(wantNeg), len(drivers.Negative))
	}
	for i, f := range wantNeg {
		if drivers.Negative[i].Feature != f {
			t.Errorf("negative %d: expected %s, got %s", i, f, drivers.Negative[i].Feature)
		}
	}
}

func TestTopDriversMagnitude(t *testing.T) {
	engine := NewEngine()
	drivers, err := engine.TopDrivers(sampleAttribution(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if drivers.Negative[0].Magnitude != 1.3 {
		t.Errorf("expected magnitude 1.3, got %v", drivers.Negative[0].Magnitude)
	}
	if drivers.Negative[0].Value != -1.3 {
		t.Errorf("expected signed value -1.3, got %v", drivers.Negative[0].Value)
	}
}

func TestTopDriversDefaultK(t *testing.T) {
	engine := NewEngine()
	drivers, err := engine.TopDrivers(sampleAttribution(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(drivers.Negative) != DefaultTopK {
		t.Errorf("expected default k %d, got %d", DefaultTopK, len(drivers.Negative))
	}
}

func TestTopDriversSkipsZeros(t *testing.T) {
	engine := NewEngine()
	attr := domain.AdditiveAttribution{
		Baseline: 1.0,
		Contributions: []domain.FeatureContribution{
			{Feature: "a", Value: 0},
			{Feature: "b", Value: 0.5},
		},
		Sum: 1.5,
	}
	drivers, err := engine.TopDrivers(attr, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(drivers.Positive) != 1 || drivers.Positive[0].Feature != "b" {
		t.Errorf("zero contributions must be filtered, got %+v", drivers.Positive)
	}
}

func TestTopDriversValidatesFirst(t *testing.T) {
	engine := NewEngine()
	attr := sampleAttribution()
	attr.Sum += 1.0 // break the invariant

	_, err := engine.TopDrivers(attr, 3)
	if err == nil {
		t.Fatal("expected invariant error")
	}
	if !errors.Is(err, domain.ErrInvariant) {
		t.Errorf("expected ErrInvariant, got %v", err)
	}
}

func TestTopDriversStableTies(t *testing.T) {
	engine := NewEngine()
	attr := domain.NewAdditiveAttribution(0, []domain.FeatureContribution{
		{Feature: "first", Value: 0.5},
		{Feature: "second", Value: 0.5},
	})

	drivers, err := engine.TopDrivers(attr, 3)
	if err != nil {
		t.Fatal(err)
	}
	if drivers.Positive[0].Feature != "first" || drivers.Positive[1].Feature != "second" {
		t.Errorf("ties must keep attribution order, got %+v", drivers.Positive)
	}
}
