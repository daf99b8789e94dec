package detector

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/atbabers/axiomguard/pkg/models"
)

// RuleFile is the on-disk format for a rule set.
type RuleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec declares a single rule. Exactly one of Contains or Pattern must
// be set.
type RuleSpec struct {
	Name     string `yaml:"name"`
	Axiom    string `yaml:"axiom"`
	Severity string `yaml:"severity"`
	Contains string `yaml:"contains,omitempty"`
	Pattern  string `yaml:"pattern,omitempty"`
}

// Build validates the declaration and constructs its rule.
func (s RuleSpec) Build() (Rule, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return nil, fmt.Errorf("rule name is required")
	}

	axiom, err := models.ParseAxiom(s.Axiom)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", name, err)
	}
	severity, err := models.ParseSeverity(s.Severity)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", name, err)
	}

	switch {
	case s.Contains != "" && s.Pattern != "":
		return nil, fmt.Errorf("rule %s: contains and pattern are mutually exclusive", name)
	case s.Contains != "":
		return SubstringRule{RuleName: name, Target: axiom, Severity: severity, Substring: s.Contains}, nil
	case s.Pattern != "":
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid pattern: %w", name, err)
		}
		return PatternRule{RuleName: name, Target: axiom, Severity: severity, Pattern: re}, nil
	default:
		return nil, fmt.Errorf("rule %s: one of contains or pattern is required", name)
	}
}

// ParseRules decodes a YAML rule set.
func ParseRules(data []byte) ([]Rule, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	seen := make(map[string]bool, len(file.Rules))
	rules := make([]Rule, 0, len(file.Rules))
	for _, spec := range file.Rules {
		rule, err := spec.Build()
		if err != nil {
			return nil, err
		}
		if seen[rule.Name()] {
			return nil, fmt.Errorf("duplicate rule name: %s", rule.Name())
		}
		seen[rule.Name()] = true
		rules = append(rules, rule)
	}
	return rules, nil
}

// LoadRules reads a YAML rule set from disk.
func LoadRules(path string) ([]Rule, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	return ParseRules(data)
}
