package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/atbabers/axiomguard/internal/config"
	"github.com/atbabers/axiomguard/internal/debug"
	"github.com/atbabers/axiomguard/internal/detector"
	"github.com/atbabers/axiomguard/internal/healer"
	"github.com/atbabers/axiomguard/internal/ledger"
	"github.com/atbabers/axiomguard/internal/metrics"
	"github.com/atbabers/axiomguard/internal/registry"
	"github.com/atbabers/axiomguard/internal/store"
	"github.com/atbabers/axiomguard/internal/strategy"
)

// engine bundles a configured healer with its optional collaborators.
type engine struct {
	healer    *healer.Healer
	store     *store.Store
	collector *metrics.Collector
	logger    *zap.Logger
}

// buildEngine validates cfg and assembles the healer. Weights persisted in
// the store take precedence over configured initial weights.
func buildEngine(cfg *config.Config) (*engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := debug.Init(cfg.Log.Level, cfg.Log.Format, cfg.Debug)
	if err != nil {
		return nil, err
	}

	var rules []detector.Rule
	if cfg.Engine.BuiltinRules {
		rules = append(rules, detector.DefaultRules()...)
	}
	if cfg.Engine.RulesFile != "" {
		loaded, err := detector.LoadRules(cfg.Engine.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = append(rules, loaded...)
	}
	debug.Log("loaded %d detection rules", len(rules))
	if len(rules) == 0 {
		debug.Warn("no detection rules configured, every context will pass")
	}

	weights, err := cfg.Engine.WeightMap()
	if err != nil {
		return nil, err
	}

	e := &engine{logger: logger}

	st, err := store.New(cfg)
	switch {
	case errors.Is(err, store.ErrDisabled):
	case err != nil:
		return nil, err
	default:
		e.store = st
		persisted, err := st.LoadWeights()
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to load weights: %w", err)
		}
		for axiom, w := range persisted {
			if w != registry.Clamp(w) {
				debug.Warn("persisted weight %v for %s is out of range, clamping", w, axiom)
			}
			weights[axiom] = w
		}
		debug.Log("loaded %d persisted weights from %s", len(persisted), cfg.Store.Path)
	}

	spec, err := cfg.Engine.CatalogSpec()
	if err != nil {
		e.Close()
		return nil, err
	}
	catalog, err := strategy.BuildCatalog(spec, cfg.Engine.Corrections())
	if err != nil {
		e.Close()
		return nil, err
	}

	reg := registry.New(cfg.Engine.LearningRate, weights)

	e.collector = metrics.New(true)
	e.collector.SetWeights(reg.Snapshot())

	e.healer = healer.New(healer.Options{
		Config: healer.Config{
			Threshold: cfg.Engine.Threshold,
			AutoHeal:  cfg.Engine.AutoHeal,
		},
		Detector: detector.New(detector.SystemClock, rules...),
		Registry: reg,
		Ledger:   ledger.New(ledger.WithMaxEntries(cfg.Ledger.MaxEntries)),
		Catalog:  catalog,
		Logger:   logger,
		Observer: e.collector,
	})

	return e, nil
}

// saveWeights snapshots the current weights into the store, if any.
func (e *engine) saveWeights() error {
	if e.store == nil {
		return nil
	}
	return e.store.SaveWeights(e.healer.Weights())
}

// Close releases the store, if any.
func (e *engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}
