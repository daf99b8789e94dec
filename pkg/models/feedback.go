package models

import "time"

// FeedbackEvent is one applied weight adjustment, as persisted by the
// weight store and returned by the feedback endpoints.
type FeedbackEvent struct {
	ID        string    `json:"id"`
	Axiom     Axiom     `json:"axiom"`
	Feedback  float64   `json:"feedback"`
	Weight    float64   `json:"weight"`
	CreatedAt time.Time `json:"created_at"`
}
