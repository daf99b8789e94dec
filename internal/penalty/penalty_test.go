package penalty

import (
	"testing"

	"github.com/atbabers/axiomguard/internal/registry"
	"github.com/atbabers/axiomguard/pkg/models"
)

func TestScore_Empty(t *testing.T) {
	if got := Score(nil, registry.DefaultWeights()); got != 0.0 {
		t.Errorf("Score(nil) = %v, want 0", got)
	}
	if got := Score([]models.Violation{}, nil); got != 0.0 {
		t.Errorf("Score([]) = %v, want 0", got)
	}
}

func TestScore_SafetyCritical(t *testing.T) {
	violations := []models.Violation{
		{Axiom: models.AxiomSafety, Severity: models.SeverityCritical, Context: "test"},
	}
	if got := Score(violations, registry.DefaultWeights()); got != 12.0 {
		t.Errorf("Score = %v, want 12.0", got)
	}
}

func TestScore_MissingWeightDefaultsToOne(t *testing.T) {
	violations := []models.Violation{
		{Axiom: models.AxiomFairness, Severity: models.SeverityHigh},
	}
	weights := map[models.Axiom]float64{models.AxiomSafety: 3}
	if got := Score(violations, weights); got != 4.0 {
		t.Errorf("Score = %v, want 4.0", got)
	}
}

func TestMultiplier(t *testing.T) {
	tests := []struct {
		severity models.Severity
		want     float64
	}{
		{models.SeverityLow, 1},
		{models.SeverityMedium, 2},
		{models.SeverityHigh, 4},
		{models.SeverityCritical, 8},
		{models.Severity(0), 1},
	}
	for _, tt := range tests {
		t.Run(tt.severity.String(), func(t *testing.T) {
			if got := Multiplier(tt.severity); got != tt.want {
				t.Errorf("Multiplier(%s) = %v, want %v", tt.severity, got, tt.want)
			}
		})
	}
}

func TestScore_MonotonicInSeverity(t *testing.T) {
	weights := registry.DefaultWeights()
	for _, a := range models.Axioms {
		prev := -1.0
		for _, s := range models.Severities {
			got := Score([]models.Violation{{Axiom: a, Severity: s}}, weights)
			if got < prev {
				t.Errorf("%s: score decreased from %v to %v at %s", a, prev, got, s)
			}
			prev = got
		}
	}
}

func TestScore_MonotonicInCount(t *testing.T) {
	weights := registry.DefaultWeights()
	var violations []models.Violation
	prev := Score(violations, weights)
	for i := 0; i < 20; i++ {
		a := models.Axioms[i%len(models.Axioms)]
		s := models.Severities[i%len(models.Severities)]
		violations = append(violations, models.Violation{Axiom: a, Severity: s})
		got := Score(violations, weights)
		if got < prev {
			t.Fatalf("score decreased from %v to %v after %d violations", prev, got, i+1)
		}
		prev = got
	}
}

func TestScore_CriticalDominatesLows(t *testing.T) {
	weights := registry.DefaultWeights()
	critical := Score([]models.Violation{{Axiom: models.AxiomConsistency, Severity: models.SeverityCritical}}, weights)

	var lows []models.Violation
	for i := 0; i < 7; i++ {
		lows = append(lows, models.Violation{Axiom: models.AxiomConsistency, Severity: models.SeverityLow})
	}
	if Score(lows, weights) >= critical {
		t.Error("one critical violation should outweigh seven low ones")
	}
}
