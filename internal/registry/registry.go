// Package registry holds the adaptive weight of every monitored axiom and
// adjusts those weights from external feedback.
package registry

import (
	"math"
	"sync"

	"github.com/atbabers/axiomguard/pkg/models"
)

const (
	// MinWeight and MaxWeight bound every axiom weight.
	MinWeight = 0.1
	MaxWeight = 10.0

	// DefaultLearningRate is the step size applied to feedback.
	DefaultLearningRate = 0.01
)

// DefaultWeights returns the initial weight of each axiom.
func DefaultWeights() map[models.Axiom]float64 {
	return map[models.Axiom]float64{
		models.AxiomConsistency:  1.0,
		models.AxiomCompleteness: 1.0,
		models.AxiomTransparency: 1.0,
		models.AxiomSafety:       1.5,
		models.AxiomFairness:     1.0,
	}
}

// Clamp bounds w to [MinWeight, MaxWeight]. NaN maps to MinWeight.
func Clamp(w float64) float64 {
	if math.IsNaN(w) {
		return MinWeight
	}
	return math.Max(MinWeight, math.Min(MaxWeight, w))
}

// weightCell is the critical section for a single axiom.
type weightCell struct {
	mu     sync.Mutex
	weight float64
}

// Registry maps each axiom to its current weight. The set of axioms is fixed
// at construction; updates to one axiom never block updates to another.
type Registry struct {
	learningRate float64
	cells        map[models.Axiom]*weightCell
}

// New creates a registry for the full axiom set. Axioms missing from initial
// start at their default weight; every starting weight is clamped.
func New(learningRate float64, initial map[models.Axiom]float64) *Registry {
	if learningRate <= 0 || math.IsNaN(learningRate) || math.IsInf(learningRate, 0) {
		learningRate = DefaultLearningRate
	}

	defaults := DefaultWeights()
	cells := make(map[models.Axiom]*weightCell, len(models.Axioms))
	for _, a := range models.Axioms {
		w, ok := initial[a]
		if !ok || math.IsNaN(w) {
			w = defaults[a]
		}
		cells[a] = &weightCell{weight: Clamp(w)}
	}

	return &Registry{
		learningRate: learningRate,
		cells:        cells,
	}
}

// LearningRate returns the configured step size.
func (r *Registry) LearningRate() float64 {
	return r.learningRate
}

// Update applies weight += learningRate * feedback and clamps the result.
// It returns the new weight and false when the axiom is not registered or
// the feedback is NaN, in which case nothing changes.
func (r *Registry) Update(axiom models.Axiom, feedback float64) (float64, bool) {
	cell, ok := r.cells[axiom]
	if !ok || math.IsNaN(feedback) {
		return 0, false
	}

	cell.mu.Lock()
	defer cell.mu.Unlock()

	next := cell.weight + r.learningRate*feedback
	if !math.IsNaN(next) {
		cell.weight = Clamp(next)
	}
	return cell.weight, true
}

// Weight returns the current weight of an axiom.
func (r *Registry) Weight(axiom models.Axiom) (float64, bool) {
	cell, ok := r.cells[axiom]
	if !ok {
		return 0, false
	}
	cell.mu.Lock()
	defer cell.mu.Unlock()
	return cell.weight, true
}

// Snapshot copies all current weights.
func (r *Registry) Snapshot() map[models.Axiom]float64 {
	out := make(map[models.Axiom]float64, len(r.cells))
	for a, cell := range r.cells {
		cell.mu.Lock()
		out[a] = cell.weight
		cell.mu.Unlock()
	}
	return out
}
