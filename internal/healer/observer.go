package healer

import "github.com/atbabers/axiomguard/pkg/models"

// Observer receives pipeline events, typically to export metrics.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveDecision(d Decision, penalty float64)
	ObserveViolation(v models.Violation)
	ObserveAttempt(axiom models.Axiom, kind models.CorrectionStrategy, ok bool)
	ObserveWeight(axiom models.Axiom, weight float64)
}

type nopObserver struct{}

func (nopObserver) ObserveDecision(Decision, float64)                            {}
func (nopObserver) ObserveViolation(models.Violation)                            {}
func (nopObserver) ObserveAttempt(models.Axiom, models.CorrectionStrategy, bool) {}
func (nopObserver) ObserveWeight(models.Axiom, float64)                          {}
