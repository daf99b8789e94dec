package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStrategy is returned when a correction strategy name is not recognized.
var ErrUnknownStrategy = errors.New("unknown correction strategy")

// CorrectionStrategy names a remediation that can be applied to a context.
type CorrectionStrategy string

const (
	StrategyRollback     CorrectionStrategy = "rollback"
	StrategyRecompute    CorrectionStrategy = "recompute"
	StrategyInterpolate  CorrectionStrategy = "interpolate"
	StrategyQueryUser    CorrectionStrategy = "query_user"
	StrategyApplyDefault CorrectionStrategy = "apply_default"
)

// Valid reports whether s is one of the built-in strategies.
func (s CorrectionStrategy) Valid() bool {
	switch s {
	case StrategyRollback, StrategyRecompute, StrategyInterpolate, StrategyQueryUser, StrategyApplyDefault:
		return true
	default:
		return false
	}
}

// ParseStrategy parses a strategy name. Both snake_case and the CamelCase
// spelling ("QueryUser") are accepted.
func ParseStrategy(name string) (CorrectionStrategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "queryuser":
		key = string(StrategyQueryUser)
	case "applydefault":
		key = string(StrategyApplyDefault)
	}
	s := CorrectionStrategy(key)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return s, nil
}
