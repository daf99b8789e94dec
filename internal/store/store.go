// Package store provides local SQLite-based persistence for adapted axiom
// weights and the feedback history that produced them. Violations are never
// persisted; the ledger stays in memory.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/atbabers/axiomguard/internal/config"
	"github.com/atbabers/axiomguard/pkg/models"
)

// ErrDisabled is returned by New when the store is turned off in config.
var ErrDisabled = errors.New("store is not enabled")

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages weight and feedback persistence.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// Status represents store status information.
type Status struct {
	WeightCount   int
	FeedbackCount int
	SizeBytes     int64
	SizeHuman     string
	LastFeedback  string
}

// New opens the store configured in cfg.
func New(cfg *config.Config) (*Store, error) {
	if !cfg.Store.Enabled {
		return nil, ErrDisabled
	}
	return Open(cfg.Store.Path)
}

// Open opens or creates the store database at path.
func Open(path string) (*Store, error) {
	path = os.ExpandEnv(path)
	if path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}

	if err := initSchema(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS weights (
		axiom TEXT PRIMARY KEY,
		weight REAL NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		axiom TEXT NOT NULL,
		feedback REAL NOT NULL,
		weight REAL NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_axiom ON feedback(axiom);
	`
	_, err := db.Exec(schema)
	return err
}

// LoadWeights returns the persisted weights. Rows for axioms this build does
// not know are skipped.
func (s *Store) LoadWeights() (map[models.Axiom]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT axiom, weight FROM weights")
	if err != nil {
		return nil, fmt.Errorf("failed to query weights: %w", err)
	}
	defer rows.Close()

	weights := make(map[models.Axiom]float64)
	for rows.Next() {
		var name string
		var w float64
		if err := rows.Scan(&name, &w); err != nil {
			return nil, fmt.Errorf("failed to scan weight: %w", err)
		}
		axiom, err := models.ParseAxiom(name)
		if err != nil {
			continue
		}
		weights[axiom] = w
	}
	return weights, rows.Err()
}

// SaveWeights replaces the persisted weights for every axiom in weights.
func (s *Store) SaveWeights(weights map[models.Axiom]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	ts := s.now().UTC().Format(timeLayout)
	for axiom, w := range weights {
		if err := upsertWeight(tx, axiom, w, ts); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func upsertWeight(tx *sql.Tx, axiom models.Axiom, w float64, ts string) error {
	_, err := tx.Exec(
		"INSERT OR REPLACE INTO weights (axiom, weight, updated_at) VALUES (?, ?, ?)",
		string(axiom), w, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to save weight for %s: %w", axiom, err)
	}
	return nil
}

// RecordFeedback persists a feedback event and the weight it produced in a
// single transaction.
func (s *Store) RecordFeedback(axiom models.Axiom, feedback, weight float64) (*models.FeedbackEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event := &models.FeedbackEvent{
		ID:        "fb_" + uuid.New().String()[:12],
		Axiom:     axiom,
		Feedback:  feedback,
		Weight:    weight,
		CreatedAt: s.now().UTC(),
	}
	ts := event.CreatedAt.Format(timeLayout)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(
		"INSERT INTO feedback (id, axiom, feedback, weight, created_at) VALUES (?, ?, ?, ?, ?)",
		event.ID, string(axiom), feedback, weight, ts,
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to insert feedback: %w", err)
	}
	if err := upsertWeight(tx, axiom, weight, ts); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return event, nil
}

// History returns up to limit feedback events, newest first. limit <= 0
// returns every event.
func (s *Store) History(limit int) ([]models.FeedbackEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		"SELECT id, axiom, feedback, weight, created_at FROM feedback ORDER BY rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var events []models.FeedbackEvent
	for rows.Next() {
		var e models.FeedbackEvent
		var axiom, created string
		if err := rows.Scan(&e.ID, &axiom, &e.Feedback, &e.Weight, &created); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		e.Axiom = models.Axiom(axiom)
		if t, err := time.Parse(timeLayout, created); err == nil {
			e.CreatedAt = t
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Status returns store status information.
func (s *Store) Status() (*Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &Status{}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM weights").Scan(&st.WeightCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM feedback").Scan(&st.FeedbackCount); err != nil {
		return nil, err
	}

	if fi, err := os.Stat(s.path); err == nil {
		st.SizeBytes = fi.Size()
	}
	st.SizeHuman = humanSize(st.SizeBytes)

	var last sql.NullString
	if err := s.db.QueryRow("SELECT MAX(created_at) FROM feedback").Scan(&last); err == nil && last.Valid {
		if t, err := time.Parse(timeLayout, last.String); err == nil {
			st.LastFeedback = s.now().Sub(t).Round(time.Second).String()
		}
	}

	return st, nil
}

// Clear removes all weights and feedback. It returns the number of
// feedback events removed.
func (s *Store) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM feedback").Scan(&count); err != nil {
		return 0, err
	}
	if _, err := s.db.Exec("DELETE FROM feedback"); err != nil {
		return 0, err
	}
	if _, err := s.db.Exec("DELETE FROM weights"); err != nil {
		return 0, err
	}
	return count, nil
}

// Close closes the store database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
