// Package models provides the value types shared across axiomguard. It
// defines the monitored axioms, ordered severities, correction strategies,
// detected violations and the aggregate statistics derived from them.
package models

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ErrUnknownSeverity is returned when a severity name cannot be parsed.
var ErrUnknownSeverity = errors.New("unknown severity")

// Severity is the ordered severity of a violation. Comparisons with < and >
// follow declaration order: Low < Medium < High < Critical.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Severities lists every severity in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

var severityNames = map[Severity]string{
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

// Valid reports whether s is one of the declared severities.
func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalText encodes the severity by name so JSON and YAML output stay
// readable, including when Severity is used as a map key.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSeverity, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(name string) (Severity, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for sev, n := range severityNames {
		if n == key {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSeverity, name)
}

// Violation is a detected breach of an axiom. It is created once by the
// detector and never mutated afterwards.
type Violation struct {
	Axiom     Axiom    `json:"axiom"`
	Severity  Severity `json:"severity"`
	Context   string   `json:"context"`
	Timestamp int64    `json:"timestamp"`
	Rule      string   `json:"rule,omitempty"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s/%s", v.Axiom, v.Severity)
}

// ContextDigest returns a short, stable fingerprint of a context string.
// It lets logs and reports correlate contexts without carrying their text.
func ContextDigest(context string) string {
	sum := blake2b.Sum256([]byte(context))
	return hex.EncodeToString(sum[:])[:16]
}
