package domain

import (
	"errors"
	"testing"
)

func TestAttributionSum(t *testing.T) {
	attr := NewAdditiveAttribution(-1.5, []FeatureContribution{
		{Feature: SignalHighTicket, Value: 0.4},
		{Feature: SignalCrossBorder, Value: 0.0},
		{Feature: SignalHighVelocity, Value: -0.2},
	})

	if attr.Sum != -1.3 {
		t.Errorf("expected sum -1.3, got %v", attr.Sum)
	}
	if err := attr.Validate(); err != nil {
		t.Fatalf("unexpected invariant error: %v", err)
	}
}

func TestAttributionDropsZeroContributions(t *testing.T) {
	attr := NewAdditiveAttribution(0, []FeatureContribution{
		{Feature: SignalHighTicket, Value: 0},
		{Feature: SignalHighVelocity, Value: 1.25},
	})

	if len(attr.Contributions) != 1 {
		t.Fatalf("expected 1 stored contribution, got %d", len(attr.Contributions))
	}
	if attr.Contributions[0].Feature != SignalHighVelocity {
		t.Errorf("wrong contribution kept: %s", attr.Contributions[0].Feature)
	}
	// Dropped zeros still participate in the sum
	if attr.Sum != 1.25 {
		t.Errorf("expected sum 1.25, got %v", attr.Sum)
	}
}

func TestAttributionValidateDetectsDrift(t *testing.T) {
	attr := NewAdditiveAttribution(1.0, []FeatureContribution{
		{Feature: SignalHighTicket, Value: 0.5},
	})
	attr.Sum = 2.0 // simulate a logic defect

	err := attr.Validate()
	if err == nil {
		t.Fatal("expected invariant error")
	}
	if !errors.Is(err, ErrInvariant) {
		t.Errorf("expected ErrInvariant, got %v", err)
	}
}

func TestAttributionToleratesFloatNoise(t *testing.T) {
	contribs := []FeatureContribution{
		{Feature: "a", Value: 0.1},
		{Feature: "b", Value: 0.2},
		{Feature: "c", Value: 0.3},
	}
	attr := NewAdditiveAttribution(0.05, contribs)

	// Perturb within tolerance
	attr.Sum += 5e-11
	if err := attr.Validate(); err != nil {
		t.Errorf("perturbation within tolerance should pass: %v", err)
	}

	attr.Sum += 1e-9
	if err := attr.Validate(); err == nil {
		t.Error("perturbation beyond tolerance should fail")
	}
}
