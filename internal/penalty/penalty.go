// Package penalty turns a set of violations into a single weighted score.
package penalty

import "github.com/atbabers/axiomguard/pkg/models"

// DefaultWeight is used for any axiom without a registered weight.
const DefaultWeight = 1.0

// Multiplier returns the severity multiplier. Escalation is exponential so a
// single critical violation outweighs several low ones. Unrecognized
// severities count as low.
func Multiplier(s models.Severity) float64 {
	switch s {
	case models.SeverityCritical:
		return 8
	case models.SeverityHigh:
		return 4
	case models.SeverityMedium:
		return 2
	default:
		return 1
	}
}

// Score sums weight(axiom) * Multiplier(severity) over all violations.
func Score(violations []models.Violation, weights map[models.Axiom]float64) float64 {
	var total float64
	for _, v := range violations {
		w, ok := weights[v.Axiom]
		if !ok {
			w = DefaultWeight
		}
		total += w * Multiplier(v.Severity)
	}
	return total
}
