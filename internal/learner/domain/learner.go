package domain

import "time"

// Learner is an anonymous learner identified by a generated ID and a recovery code.
type Learner struct {
	ID          string
	DisplayName string
	// RecoveryHash is the bcrypt hash of the one-time recovery code. Never exposed.
	RecoveryHash string
	CreatedAt    time.Time
}

// CompletionKind distinguishes completed lessons from passed challenges.
type CompletionKind string

const (
	CompletionLesson    CompletionKind = "lesson"
	CompletionChallenge CompletionKind = "challenge"
)

// Progress lists what a learner has completed, in completion order.
type Progress struct {
	LearnerID           string
	CompletedLessons    []string
	CompletedChallenges []string
	UpdatedAt           time.Time
}
