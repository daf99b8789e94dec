package models

// ViolationStatistics is a point-in-time aggregate over recorded violations.
type ViolationStatistics struct {
	Total      int              `json:"total"`
	ByAxiom    map[Axiom]int    `json:"by_axiom"`
	BySeverity map[Severity]int `json:"by_severity"`
}

// NewViolationStatistics returns empty statistics with initialized maps.
func NewViolationStatistics() ViolationStatistics {
	return ViolationStatistics{
		ByAxiom:    make(map[Axiom]int),
		BySeverity: make(map[Severity]int),
	}
}

// Add counts a single violation.
func (s *ViolationStatistics) Add(v Violation) {
	if s.ByAxiom == nil {
		s.ByAxiom = make(map[Axiom]int)
	}
	if s.BySeverity == nil {
		s.BySeverity = make(map[Severity]int)
	}
	s.Total++
	s.ByAxiom[v.Axiom]++
	s.BySeverity[v.Severity]++
}

// Clone returns a deep copy so callers can hold the snapshot safely.
func (s ViolationStatistics) Clone() ViolationStatistics {
	out := ViolationStatistics{
		Total:      s.Total,
		ByAxiom:    make(map[Axiom]int, len(s.ByAxiom)),
		BySeverity: make(map[Severity]int, len(s.BySeverity)),
	}
	for k, v := range s.ByAxiom {
		out.ByAxiom[k] = v
	}
	for k, v := range s.BySeverity {
		out.BySeverity[k] = v
	}
	return out
}
