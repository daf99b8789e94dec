// Package strategy implements the correction strategies that rewrite a
// context after a violation, and the per-axiom catalog that orders them.
package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/atbabers/axiomguard/pkg/models"
)

// ErrStrategyFailed is the single recoverable failure of a correction attempt.
var ErrStrategyFailed = errors.New("strategy failed")

// Markers written by the built-in strategies.
const (
	RollbackMarker    = "[ROLLED_BACK]"
	InterpolateMarker = "[INTERPOLATED]"
	DefaultMarker     = "[DEFAULT_APPLIED]"
)

// StrategyError reports why a strategy could not correct a context.
// It always matches ErrStrategyFailed with errors.Is.
type StrategyError struct {
	Strategy models.CorrectionStrategy
	Reason   string
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Strategy, e.Reason)
}

func (e *StrategyError) Unwrap() error { return ErrStrategyFailed }

// Fail builds a StrategyError.
func Fail(kind models.CorrectionStrategy, reason string) error {
	return &StrategyError{Strategy: kind, Reason: reason}
}

// Strategy attempts to correct a context for a violation. It returns the
// rewritten context or an error matching ErrStrategyFailed.
type Strategy interface {
	Kind() models.CorrectionStrategy
	Apply(context string, v models.Violation) (string, error)
}

// Apply runs s and guarantees a tried/failed outcome: any error or panic
// from the strategy is reported as a StrategyError.
func Apply(s Strategy, context string, v models.Violation) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", Fail(s.Kind(), fmt.Sprintf("panic: %v", r))
		}
	}()

	out, err = s.Apply(context, v)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, ErrStrategyFailed) {
		return "", err
	}
	return "", Fail(s.Kind(), err.Error())
}

// Rollback marks the context as rolled back.
type Rollback struct{}

func (Rollback) Kind() models.CorrectionStrategy { return models.StrategyRollback }

func (Rollback) Apply(context string, _ models.Violation) (string, error) {
	return RollbackMarker + " " + context, nil
}

// Interpolate marks the context as having interpolated content.
type Interpolate struct{}

func (Interpolate) Kind() models.CorrectionStrategy { return models.StrategyInterpolate }

func (Interpolate) Apply(context string, _ models.Violation) (string, error) {
	return context + " " + InterpolateMarker, nil
}

// ApplyDefault marks the context as having defaults applied.
type ApplyDefault struct{}

func (ApplyDefault) Kind() models.CorrectionStrategy { return models.StrategyApplyDefault }

func (ApplyDefault) Apply(context string, _ models.Violation) (string, error) {
	return context + " " + DefaultMarker, nil
}

// QueryUser never succeeds; it forces escalation to a human.
type QueryUser struct{}

func (QueryUser) Kind() models.CorrectionStrategy { return models.StrategyQueryUser }

func (QueryUser) Apply(string, models.Violation) (string, error) {
	return "", Fail(models.StrategyQueryUser, "user intervention required")
}

// DefaultCorrections maps violation markers to their corrected forms.
func DefaultCorrections() map[string]string {
	return map[string]string{"inconsistent": "consistent"}
}

// Recompute replaces known violation markers with their corrected forms.
type Recompute struct {
	triggers []string
	replacer *strings.Replacer
}

// NewRecompute builds a Recompute strategy. Longer triggers are matched
// first so a specific correction wins over a shorter overlapping one.
func NewRecompute(corrections map[string]string) *Recompute {
	triggers := make([]string, 0, len(corrections))
	for trigger := range corrections {
		if trigger != "" {
			triggers = append(triggers, trigger)
		}
	}
	sort.Slice(triggers, func(i, j int) bool {
		if len(triggers[i]) != len(triggers[j]) {
			return len(triggers[i]) > len(triggers[j])
		}
		return triggers[i] < triggers[j]
	})

	pairs := make([]string, 0, 2*len(triggers))
	for _, trigger := range triggers {
		pairs = append(pairs, trigger, corrections[trigger])
	}

	return &Recompute{triggers: triggers, replacer: strings.NewReplacer(pairs...)}
}

func (*Recompute) Kind() models.CorrectionStrategy { return models.StrategyRecompute }

func (r *Recompute) Apply(context string, _ models.Violation) (string, error) {
	for _, trigger := range r.triggers {
		if strings.Contains(context, trigger) {
			return r.replacer.Replace(context), nil
		}
	}
	return "", Fail(models.StrategyRecompute, "nothing to recompute")
}

// New returns the built-in strategy for kind.
func New(kind models.CorrectionStrategy, corrections map[string]string) (Strategy, error) {
	switch kind {
	case models.StrategyRollback:
		return Rollback{}, nil
	case models.StrategyRecompute:
		if corrections == nil {
			corrections = DefaultCorrections()
		}
		return NewRecompute(corrections), nil
	case models.StrategyInterpolate:
		return Interpolate{}, nil
	case models.StrategyQueryUser:
		return QueryUser{}, nil
	case models.StrategyApplyDefault:
		return ApplyDefault{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownStrategy, kind)
	}
}
