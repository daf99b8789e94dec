// Package healer orchestrates detection, scoring and remediation. A Healer
// runs each context through the detector, scores the violations with the
// current axiom weights, and either passes the context through, records the
// violations as tolerated, or rewrites the context with the configured
// correction strategies.
package healer

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atbabers/axiomguard/internal/detector"
	"github.com/atbabers/axiomguard/internal/ledger"
	"github.com/atbabers/axiomguard/internal/penalty"
	"github.com/atbabers/axiomguard/internal/registry"
	"github.com/atbabers/axiomguard/internal/strategy"
	"github.com/atbabers/axiomguard/pkg/models"
)

// DefaultThreshold is the penalty above which healing kicks in.
const DefaultThreshold = 0.5

// Decision is the branch taken for a context.
type Decision string

const (
	DecisionPass      Decision = "pass"
	DecisionTolerated Decision = "tolerated"
	DecisionHealed    Decision = "healed"
)

// Config is the immutable orchestration policy.
type Config struct {
	Threshold float64
	AutoHeal  bool
}

// DefaultConfig returns threshold 0.5 with auto-heal enabled.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, AutoHeal: true}
}

// Options wires a Healer. Nil collaborators get defaults.
type Options struct {
	Config   Config
	Detector *detector.Detector
	Registry *registry.Registry
	Ledger   *ledger.Ledger
	Catalog  *strategy.Catalog
	Logger   *zap.Logger
	Observer Observer
}

// Healer is safe for concurrent use. Only the registry weights and the
// ledger change after construction.
type Healer struct {
	cfg      Config
	detector *detector.Detector
	registry *registry.Registry
	ledger   *ledger.Ledger
	catalog  *strategy.Catalog
	logger   *zap.Logger
	observer Observer
}

// New creates a Healer.
func New(opts Options) *Healer {
	h := &Healer{
		cfg:      opts.Config,
		detector: opts.Detector,
		registry: opts.Registry,
		ledger:   opts.Ledger,
		catalog:  opts.Catalog,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	if h.detector == nil {
		h.detector = detector.Default(nil)
	}
	if h.registry == nil {
		h.registry = registry.New(registry.DefaultLearningRate, nil)
	}
	if h.ledger == nil {
		h.ledger = ledger.New()
	}
	if h.catalog == nil {
		h.catalog = strategy.DefaultCatalog()
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.observer == nil {
		h.observer = nopObserver{}
	}
	h.logger = h.logger.Named("healer")
	return h
}

// Attempt records one strategy application during healing.
type Attempt struct {
	Axiom    models.Axiom              `json:"axiom"`
	Strategy models.CorrectionStrategy `json:"strategy"`
	OK       bool                      `json:"ok"`
	Error    string                    `json:"error,omitempty"`
}

// Report describes everything a single pass decided.
type Report struct {
	RunID      string             `json:"run_id"`
	Digest     string             `json:"digest"`
	Input      string             `json:"input"`
	Output     string             `json:"output"`
	Decision   Decision           `json:"decision"`
	Penalty    float64            `json:"penalty"`
	Violations []models.Violation `json:"violations"`
	Attempts   []Attempt          `json:"attempts,omitempty"`
}

// Changed reports whether the context was rewritten.
func (r Report) Changed() bool {
	return r.Input != r.Output
}

// MonitorAndHeal returns the context, rewritten when its penalty exceeds the
// threshold and auto-heal is enabled. Individual strategy failures never
// surface as an error.
func (h *Healer) MonitorAndHeal(input string) (string, error) {
	report := h.Inspect(input)
	return report.Output, nil
}

// Inspect runs the full pipeline and reports each decision taken.
func (h *Healer) Inspect(input string) Report {
	report := Report{
		RunID:    uuid.New().String(),
		Digest:   models.ContextDigest(input),
		Input:    input,
		Output:   input,
		Decision: DecisionPass,
	}

	violations := h.detector.Detect(input)
	if len(violations) == 0 {
		h.observer.ObserveDecision(DecisionPass, 0)
		return report
	}
	report.Violations = violations
	report.Penalty = h.CalculatePenalty(violations)

	log := h.logger.With(
		zap.String("run_id", report.RunID),
		zap.String("context_digest", report.Digest),
		zap.Int("violations", len(violations)),
		zap.Float64("penalty", report.Penalty),
	)

	if report.Penalty <= h.cfg.Threshold || !h.cfg.AutoHeal {
		h.ledger.RecordAll(violations)
		for _, v := range violations {
			h.observer.ObserveViolation(v)
		}
		report.Decision = DecisionTolerated
		h.observer.ObserveDecision(DecisionTolerated, report.Penalty)
		log.Info("violations tolerated",
			zap.String("decision", string(DecisionTolerated)),
			zap.Bool("auto_heal", h.cfg.AutoHeal))
		return report
	}

	working := input
	for _, v := range violations {
		working = h.heal(working, v, &report, log)
		h.ledger.Record(v)
		h.observer.ObserveViolation(v)
	}

	report.Output = working
	report.Decision = DecisionHealed
	h.observer.ObserveDecision(DecisionHealed, report.Penalty)
	log.Info("context healed",
		zap.String("decision", string(DecisionHealed)),
		zap.Int("attempts", len(report.Attempts)),
		zap.Bool("changed", report.Changed()))
	return report
}

// heal tries each strategy for v in order and returns the first successful
// rewrite, or working unchanged when every strategy fails.
func (h *Healer) heal(working string, v models.Violation, report *Report, log *zap.Logger) string {
	for _, s := range h.catalog.For(v.Axiom) {
		out, err := strategy.Apply(s, working, v)
		attempt := Attempt{Axiom: v.Axiom, Strategy: s.Kind(), OK: err == nil}
		h.observer.ObserveAttempt(v.Axiom, s.Kind(), err == nil)

		if err != nil {
			attempt.Error = err.Error()
			report.Attempts = append(report.Attempts, attempt)
			if !errors.Is(err, strategy.ErrStrategyFailed) {
				log.Warn("unexpected strategy error", zap.Error(err))
			}
			log.Debug("strategy failed",
				zap.String("axiom", string(v.Axiom)),
				zap.String("strategy", string(s.Kind())),
				zap.Error(err))
			continue
		}

		report.Attempts = append(report.Attempts, attempt)
		return out
	}

	log.Debug("violation left unhealed", zap.String("axiom", string(v.Axiom)))
	return working
}

// DetectViolations runs only the detector.
func (h *Healer) DetectViolations(input string) []models.Violation {
	return h.detector.Detect(input)
}

// CalculatePenalty scores violations with the current weights.
func (h *Healer) CalculatePenalty(violations []models.Violation) float64 {
	return penalty.Score(violations, h.registry.Snapshot())
}

// UpdateWeights applies feedback to an axiom weight. It returns the new
// weight and false when the axiom is unknown.
func (h *Healer) UpdateWeights(axiom models.Axiom, feedback float64) (float64, bool) {
	w, ok := h.registry.Update(axiom, feedback)
	if !ok {
		h.logger.Debug("weight update ignored", zap.String("axiom", string(axiom)), zap.Float64("feedback", feedback))
		return 0, false
	}
	h.observer.ObserveWeight(axiom, w)
	h.logger.Debug("weight updated",
		zap.String("axiom", string(axiom)),
		zap.Float64("feedback", feedback),
		zap.Float64("weight", w))
	return w, true
}

// Weights returns a copy of the current axiom weights.
func (h *Healer) Weights() map[models.Axiom]float64 {
	return h.registry.Snapshot()
}

// Statistics aggregates the ledger.
func (h *Healer) Statistics() models.ViolationStatistics {
	return h.ledger.Statistics()
}

// Ledger exposes the violation history for snapshots.
func (h *Healer) Ledger() *ledger.Ledger {
	return h.ledger
}

// Config returns the orchestration policy.
func (h *Healer) Config() Config {
	return h.cfg
}
