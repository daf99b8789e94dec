package detector

import (
	"regexp"
	"strings"

	"github.com/atbabers/axiomguard/pkg/models"
)

// Rule decides whether a context violates one axiom. Implementations must be
// deterministic and free of side effects.
type Rule interface {
	Name() string
	Axiom() models.Axiom
	Inspect(context string) (models.Severity, bool)
}

// SubstringRule fires when the context contains a literal marker.
type SubstringRule struct {
	RuleName  string
	Target    models.Axiom
	Severity  models.Severity
	Substring string
}

func (r SubstringRule) Name() string        { return r.RuleName }
func (r SubstringRule) Axiom() models.Axiom { return r.Target }

func (r SubstringRule) Inspect(context string) (models.Severity, bool) {
	if r.Substring == "" || !strings.Contains(context, r.Substring) {
		return 0, false
	}
	return r.Severity, true
}

// PatternRule fires when the context matches a regular expression.
type PatternRule struct {
	RuleName string
	Target   models.Axiom
	Severity models.Severity
	Pattern  *regexp.Regexp
}

func (r PatternRule) Name() string        { return r.RuleName }
func (r PatternRule) Axiom() models.Axiom { return r.Target }

func (r PatternRule) Inspect(context string) (models.Severity, bool) {
	if r.Pattern == nil || !r.Pattern.MatchString(context) {
		return 0, false
	}
	return r.Severity, true
}

// DefaultRules returns the built-in literal-marker rules.
func DefaultRules() []Rule {
	return []Rule{
		SubstringRule{
			RuleName:  "inconsistent-marker",
			Target:    models.AxiomConsistency,
			Severity:  models.SeverityHigh,
			Substring: "inconsistent",
		},
		SubstringRule{
			RuleName:  "unsafe-marker",
			Target:    models.AxiomSafety,
			Severity:  models.SeverityCritical,
			Substring: "unsafe",
		},
	}
}
