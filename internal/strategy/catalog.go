package strategy

import (
	"fmt"

	"github.com/atbabers/axiomguard/pkg/models"
)

// Catalog holds the ordered strategies to attempt for each axiom. It is
// read-only after construction.
type Catalog struct {
	entries map[models.Axiom][]Strategy
}

// DefaultSpec returns the built-in strategy order per axiom. Consistency
// tries Recompute first so the trigger itself is corrected; Rollback is the
// fallback. Transparency and Fairness have no automatic remediation.
func DefaultSpec() map[models.Axiom][]models.CorrectionStrategy {
	return map[models.Axiom][]models.CorrectionStrategy{
		models.AxiomConsistency:  {models.StrategyRecompute, models.StrategyRollback},
		models.AxiomSafety:       {models.StrategyRollback, models.StrategyQueryUser},
		models.AxiomCompleteness: {models.StrategyInterpolate, models.StrategyApplyDefault},
	}
}

// NewCatalog copies entries into a catalog.
func NewCatalog(entries map[models.Axiom][]Strategy) *Catalog {
	owned := make(map[models.Axiom][]Strategy, len(entries))
	for axiom, list := range entries {
		owned[axiom] = append([]Strategy(nil), list...)
	}
	return &Catalog{entries: owned}
}

// DefaultCatalog builds the catalog from DefaultSpec and DefaultCorrections.
func DefaultCatalog() *Catalog {
	c, err := BuildCatalog(DefaultSpec(), DefaultCorrections())
	if err != nil {
		panic(fmt.Sprintf("default strategy catalog is invalid: %v", err))
	}
	return c
}

// BuildCatalog resolves strategy names into a catalog. corrections feeds the
// Recompute strategy; nil selects DefaultCorrections.
func BuildCatalog(spec map[models.Axiom][]models.CorrectionStrategy, corrections map[string]string) (*Catalog, error) {
	entries := make(map[models.Axiom][]Strategy, len(spec))
	for axiom, kinds := range spec {
		if !axiom.Valid() {
			return nil, fmt.Errorf("%w: %q", models.ErrUnknownAxiom, axiom)
		}
		list := make([]Strategy, 0, len(kinds))
		for _, kind := range kinds {
			s, err := New(kind, corrections)
			if err != nil {
				return nil, fmt.Errorf("axiom %s: %w", axiom, err)
			}
			list = append(list, s)
		}
		entries[axiom] = list
	}
	return &Catalog{entries: entries}, nil
}

// For returns the strategies configured for axiom, in attempt order.
func (c *Catalog) For(axiom models.Axiom) []Strategy {
	if c == nil {
		return nil
	}
	return c.entries[axiom]
}

// Spec describes the catalog by strategy name.
func (c *Catalog) Spec() map[models.Axiom][]models.CorrectionStrategy {
	out := make(map[models.Axiom][]models.CorrectionStrategy, len(c.entries))
	for axiom, list := range c.entries {
		kinds := make([]models.CorrectionStrategy, len(list))
		for i, s := range list {
			kinds[i] = s.Kind()
		}
		out[axiom] = kinds
	}
	return out
}
