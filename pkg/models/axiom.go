package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAxiom is returned when an axiom name is not part of the closed set.
var ErrUnknownAxiom = errors.New("unknown axiom")

// Axiom is one of the behavioral axioms monitored by the engine.
type Axiom string

const (
	AxiomConsistency  Axiom = "consistency"
	AxiomCompleteness Axiom = "completeness"
	AxiomTransparency Axiom = "transparency"
	AxiomSafety       Axiom = "safety"
	AxiomFairness     Axiom = "fairness"
)

// Axioms lists the closed set of axioms in declaration order.
var Axioms = []Axiom{
	AxiomConsistency,
	AxiomCompleteness,
	AxiomTransparency,
	AxiomSafety,
	AxiomFairness,
}

// Valid reports whether a belongs to the closed axiom set.
func (a Axiom) Valid() bool {
	switch a {
	case AxiomConsistency, AxiomCompleteness, AxiomTransparency, AxiomSafety, AxiomFairness:
		return true
	default:
		return false
	}
}

// Title returns the display form of the axiom (e.g. "Consistency").
func (a Axiom) Title() string {
	if a == "" {
		return ""
	}
	return strings.ToUpper(string(a[:1])) + string(a[1:])
}

// ParseAxiom parses an axiom name case-insensitively.
func ParseAxiom(name string) (Axiom, error) {
	a := Axiom(strings.ToLower(strings.TrimSpace(name)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAxiom, name)
	}
	return a, nil
}
