// Package detector inspects operation contexts and reports axiom violations.
// Detection is driven by a pluggable set of independent rules; every rule is
// evaluated for every context and none can suppress another.
package detector

import (
	"time"

	"github.com/atbabers/axiomguard/pkg/models"
)

// Clock supplies violation timestamps.
type Clock interface {
	Now() int64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() int64

// Now calls f.
func (f ClockFunc) Now() int64 { return f() }

// SystemClock reports Unix milliseconds.
var SystemClock Clock = ClockFunc(func() int64 { return time.Now().UnixMilli() })

// Detector runs a fixed rule set against contexts. It holds no mutable state
// and is safe for concurrent use.
type Detector struct {
	rules []Rule
	clock Clock
}

// New creates a detector over the given rules. A nil clock uses SystemClock.
func New(clock Clock, rules ...Rule) *Detector {
	if clock == nil {
		clock = SystemClock
	}
	owned := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r != nil {
			owned = append(owned, r)
		}
	}
	return &Detector{rules: owned, clock: clock}
}

// Default creates a detector with the built-in rules.
func Default(clock Clock) *Detector {
	return New(clock, DefaultRules()...)
}

// Rules returns a copy of the configured rules.
func (d *Detector) Rules() []Rule {
	out := make([]Rule, len(d.rules))
	copy(out, d.rules)
	return out
}

// Detect evaluates every rule against context, in rule order. A severity
// outside the declared range is pulled to the nearest declared one.
func (d *Detector) Detect(context string) []models.Violation {
	if context == "" {
		return nil
	}

	var violations []models.Violation
	for _, rule := range d.rules {
		severity, ok := rule.Inspect(context)
		if !ok {
			continue
		}
		violations = append(violations, models.Violation{
			Axiom:     rule.Axiom(),
			Severity:  boundSeverity(severity),
			Context:   context,
			Timestamp: d.now(),
			Rule:      rule.Name(),
		})
	}
	return violations
}

func (d *Detector) now() int64 {
	ts := d.clock.Now()
	if ts < 0 {
		return 0
	}
	return ts
}

func boundSeverity(s models.Severity) models.Severity {
	switch {
	case s.Valid():
		return s
	case s > models.SeverityCritical:
		return models.SeverityCritical
	default:
		return models.SeverityLow
	}
}
