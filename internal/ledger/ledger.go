// Package ledger keeps the in-memory, append-only history of recorded
// violations and aggregates statistics over it. A Ledger is safe for
// concurrent use; callers only ever receive copies of its contents.
package ledger

import (
	"sync"

	"github.com/atbabers/axiomguard/pkg/models"
)

// Ledger is an append-only violation log.
type Ledger struct {
	mu         sync.Mutex
	entries    []models.Violation
	maxEntries int
	stats      models.ViolationStatistics
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMaxEntries bounds how many violations Snapshot retains. The oldest
// entries leave the window first; Statistics keeps counting every recorded
// violation. Zero or less means unbounded.
func WithMaxEntries(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxEntries = n
		}
	}
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{stats: models.NewViolationStatistics()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends a violation. It never fails and never drops the count.
func (l *Ledger) Record(v models.Violation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appendLocked(v)
}

// RecordAll appends violations in order within a single critical section.
func (l *Ledger) RecordAll(vs []models.Violation) {
	if len(vs) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range vs {
		l.appendLocked(v)
	}
}

func (l *Ledger) appendLocked(v models.Violation) {
	if l.maxEntries > 0 && len(l.entries) >= l.maxEntries {
		l.entries = append(l.entries[1:], v)
	} else {
		l.entries = append(l.entries, v)
	}
	l.stats.Add(v)
}

// Statistics returns a consistent snapshot of the aggregate counts. A nil
// ledger reports empty statistics.
func (l *Ledger) Statistics() models.ViolationStatistics {
	if l == nil {
		return models.NewViolationStatistics()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats.Clone()
}

// Snapshot copies the retained entries in insertion order.
func (l *Ledger) Snapshot() []models.Violation {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Violation, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
