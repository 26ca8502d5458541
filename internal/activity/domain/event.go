package domain

import "time"

// Event is one recorded learner action (registration, lesson completion, submission, code run).
type Event struct {
	ID        string    `json:"id"`
	LearnerID string    `json:"learnerId"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"-"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
