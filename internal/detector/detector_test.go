package detector

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/atbabers/axiomguard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ts int64) Clock {
	return ClockFunc(func() int64 { return ts })
}

func TestDetect_Inconsistent(t *testing.T) {
	d := Default(fixedClock(7))

	violations := d.Detect("This is inconsistent")
	require.Len(t, violations, 1)
	assert.Equal(t, models.AxiomConsistency, violations[0].Axiom)
	assert.Equal(t, models.SeverityHigh, violations[0].Severity)
	assert.Equal(t, "This is inconsistent", violations[0].Context)
	assert.Equal(t, int64(7), violations[0].Timestamp)
	assert.Equal(t, "inconsistent-marker", violations[0].Rule)
}

func TestDetect_Unsafe(t *testing.T) {
	d := Default(fixedClock(0))

	violations := d.Detect("this is unsafe")
	require.Len(t, violations, 1)
	assert.Equal(t, models.AxiomSafety, violations[0].Axiom)
	assert.Equal(t, models.SeverityCritical, violations[0].Severity)
}

func TestDetect_NoMatch(t *testing.T) {
	d := Default(nil)

	tests := []string{"", "all good here", "INCONSISTENT is not matched case-sensitively", "safe"}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Empty(t, d.Detect(input))
		})
	}
}

func TestDetect_MultipleRulesNoShortCircuit(t *testing.T) {
	d := Default(fixedClock(1))

	violations := d.Detect("inconsistent and unsafe")
	require.Len(t, violations, 2)
	assert.Equal(t, models.AxiomConsistency, violations[0].Axiom)
	assert.Equal(t, models.AxiomSafety, violations[1].Axiom)
}

func TestDetect_NegativeClockClamped(t *testing.T) {
	d := Default(fixedClock(-50))

	violations := d.Detect("unsafe")
	require.Len(t, violations, 1)
	assert.Equal(t, int64(0), violations[0].Timestamp)
}

func TestDetect_SystemClockNonNegative(t *testing.T) {
	d := Default(nil)

	violations := d.Detect("unsafe")
	require.Len(t, violations, 1)
	assert.Positive(t, violations[0].Timestamp)
}

func TestDetect_ExtensibleRules(t *testing.T) {
	rules := append(DefaultRules(), PatternRule{
		RuleName: "hidden-step",
		Target:   models.AxiomTransparency,
		Severity: models.SeverityMedium,
		Pattern:  regexp.MustCompile(`(?i)\bundisclosed\b`),
	})
	d := New(fixedClock(3), rules...)

	violations := d.Detect("Undisclosed change")
	require.Len(t, violations, 1)
	assert.Equal(t, models.AxiomTransparency, violations[0].Axiom)
	assert.Equal(t, models.SeverityMedium, violations[0].Severity)

	assert.Len(t, d.Detect("This is inconsistent"), 1, "existing rules keep working")
}

type fixedSeverityRule models.Severity

func (fixedSeverityRule) Name() string        { return "fixed-severity" }
func (fixedSeverityRule) Axiom() models.Axiom { return models.AxiomFairness }
func (r fixedSeverityRule) Inspect(string) (models.Severity, bool) {
	return models.Severity(r), true
}

func TestDetect_OutOfRangeSeverityBounded(t *testing.T) {
	tests := []struct {
		name string
		in   models.Severity
		want models.Severity
	}{
		{"zero", 0, models.SeverityLow},
		{"negative", -3, models.SeverityLow},
		{"above critical", 9, models.SeverityCritical},
		{"valid", models.SeverityMedium, models.SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(fixedClock(1), fixedSeverityRule(tt.in))

			violations := d.Detect("anything")
			require.Len(t, violations, 1)
			assert.Equal(t, tt.want, violations[0].Severity)

			_, err := violations[0].Severity.MarshalText()
			assert.NoError(t, err)
		})
	}
}

func TestDetect_Deterministic(t *testing.T) {
	d := Default(fixedClock(9))
	first := d.Detect("inconsistent unsafe")
	second := d.Detect("inconsistent unsafe")
	assert.Equal(t, first, second)
}

func TestNew_SkipsNilRulesAndCopies(t *testing.T) {
	rules := []Rule{nil, DefaultRules()[0]}
	d := New(nil, rules...)
	rules[1] = nil

	assert.Len(t, d.Rules(), 1)
	assert.NotNil(t, d.Rules()[0])
}

func TestParseRules(t *testing.T) {
	data := []byte(`
rules:
  - name: missing-field
    axiom: Completeness
    severity: medium
    pattern: '(?i)\bTODO\b'
  - name: bias
    axiom: fairness
    severity: low
    contains: "always reject"
`)

	rules, err := ParseRules(data)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	d := New(fixedClock(1), rules...)
	violations := d.Detect("todo: we always reject")
	require.Len(t, violations, 2)
	assert.Equal(t, models.AxiomCompleteness, violations[0].Axiom)
	assert.Equal(t, models.AxiomFairness, violations[1].Axiom)
	assert.Equal(t, models.SeverityLow, violations[1].Severity)
}

func TestParseRules_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown axiom", "rules:\n  - {name: a, axiom: honesty, severity: low, contains: x}\n"},
		{"unknown severity", "rules:\n  - {name: a, axiom: safety, severity: severe, contains: x}\n"},
		{"no matcher", "rules:\n  - {name: a, axiom: safety, severity: low}\n"},
		{"both matchers", "rules:\n  - {name: a, axiom: safety, severity: low, contains: x, pattern: y}\n"},
		{"bad regex", "rules:\n  - {name: a, axiom: safety, severity: low, pattern: '('}\n"},
		{"missing name", "rules:\n  - {axiom: safety, severity: low, contains: x}\n"},
		{"duplicate name", "rules:\n  - {name: a, axiom: safety, severity: low, contains: x}\n  - {name: a, axiom: safety, severity: low, contains: y}\n"},
		{"malformed yaml", "rules: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "rules:\n  - name: leak\n    axiom: safety\n    severity: critical\n    contains: password\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "leak", rules[0].Name())

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
