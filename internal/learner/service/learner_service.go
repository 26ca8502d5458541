package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"jsacademy/backend/internal/challenge"
	"jsacademy/backend/internal/content"
	"jsacademy/backend/internal/learner/domain"
	"jsacademy/backend/internal/security"
)

// Sentinel errors for the learner service; the handler maps them to HTTP status codes.
var (
	ErrInvalidRecovery   = errors.New("invalid learner id or recovery code")
	ErrUnknownLesson     = errors.New("unknown lesson")
	ErrUnknownChallenge  = errors.New("unknown challenge")
	ErrLearnerNotFound   = errors.New("learner not found")
	ErrDisplayNameLength = errors.New("display name too long")
)

const (
	defaultDisplayName = "Learner"
	maxDisplayNameLen  = 64
)

// Activity actions recorded by the service.
const (
	ActionRegistered      = "learner_registered"
	ActionRecovered       = "learner_recovered"
	ActionLessonCompleted = "lesson_completed"
)

// Repo is the learner repository needed by the service.
type Repo interface {
	GetByID(ctx context.Context, id string) (*domain.Learner, error)
	Create(ctx context.Context, l *domain.Learner) error
	AddCompletion(ctx context.Context, learnerID string, kind domain.CompletionKind, itemID string, at time.Time) (bool, error)
	GetProgress(ctx context.Context, learnerID string) (*domain.Progress, error)
}

// ActivityLogger records learner activity. Best effort.
type ActivityLogger interface {
	LogEvent(ctx context.Context, learnerID, action, resource, metadata string)
}

// Registration is returned once from Register. RecoveryCode is never shown again.
type Registration struct {
	Learner      *domain.Learner
	Token        string
	ExpiresAt    time.Time
	RecoveryCode string
}

// Session is a freshly issued learner token.
type Session struct {
	LearnerID string
	Token     string
	ExpiresAt time.Time
}

// ProgressReport summarizes a learner's progress against the current catalogs.
type ProgressReport struct {
	CompletedLessons    []string           `json:"completedLessons"`
	CompletedChallenges []string           `json:"completedChallenges"`
	Paths               map[string]float64 `json:"paths"`
	Overall             float64            `json:"overall"`
	Challenges          float64            `json:"challenges"`
}

// LearnerService registers anonymous learners, re-issues tokens from recovery codes, and tracks completions.
type LearnerService struct {
	repo       Repo
	hasher     *security.Hasher
	tokens     *security.TokenProvider
	lessons    *content.Store
	challenges *challenge.Store
	activity   ActivityLogger
	nowF       func() time.Time
}

// NewLearnerService returns a service. activity may be nil.
func NewLearnerService(repo Repo, hasher *security.Hasher, tokens *security.TokenProvider, lessons *content.Store, challenges *challenge.Store, activity ActivityLogger) *LearnerService {
	return &LearnerService{
		repo:       repo,
		hasher:     hasher,
		tokens:     tokens,
		lessons:    lessons,
		challenges: challenges,
		activity:   activity,
		nowF:       time.Now,
	}
}

func (s *LearnerService) logEvent(ctx context.Context, learnerID, action, resource, metadata string) {
	if s.activity != nil {
		s.activity.LogEvent(ctx, learnerID, action, resource, metadata)
	}
}

// Register creates a learner with a fresh recovery code and issues a token.
func (s *LearnerService) Register(ctx context.Context, displayName string) (*Registration, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = defaultDisplayName
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLen {
		return nil, ErrDisplayNameLength
	}
	code, err := security.GenerateRecoveryCode()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash([]byte(security.NormalizeRecoveryCode(code)))
	if err != nil {
		return nil, err
	}
	l := &domain.Learner{
		ID:           uuid.New().String(),
		DisplayName:  name,
		RecoveryHash: hash,
		CreatedAt:    s.nowF().UTC(),
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("create learner: %w", err)
	}
	token, exp, err := s.tokens.IssueAccess(l.ID, l.DisplayName)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, l.ID, ActionRegistered, "learner", "")
	return &Registration{Learner: l, Token: token, ExpiresAt: exp, RecoveryCode: code}, nil
}

// Recover issues a new token for learnerID when code matches its recovery code.
// Unknown learners and wrong codes return the same error.
func (s *LearnerService) Recover(ctx context.Context, learnerID, code string) (*Session, error) {
	l, err := s.repo.GetByID(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrInvalidRecovery
	}
	if err := s.hasher.Compare(l.RecoveryHash, []byte(security.NormalizeRecoveryCode(code))); err != nil {
		return nil, ErrInvalidRecovery
	}
	token, exp, err := s.tokens.IssueAccess(l.ID, l.DisplayName)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, l.ID, ActionRecovered, "learner", "")
	return &Session{LearnerID: l.ID, Token: token, ExpiresAt: exp}, nil
}

// CompleteLesson marks lessonID completed. Completing a lesson twice is a no-op.
func (s *LearnerService) CompleteLesson(ctx context.Context, learnerID, lessonID string) error {
	cat := s.lessons.Catalog()
	if cat == nil || !contains(cat.AllModules(), lessonID) {
		return ErrUnknownLesson
	}
	added, err := s.complete(ctx, learnerID, domain.CompletionLesson, lessonID)
	if err != nil {
		return err
	}
	if added {
		s.logEvent(ctx, learnerID, ActionLessonCompleted, "lesson:"+lessonID, "")
	}
	return nil
}

// CompleteChallenge marks challengeID passed. The challenge handler logs the activity.
func (s *LearnerService) CompleteChallenge(ctx context.Context, learnerID, challengeID string) error {
	cat := s.challenges.Catalog()
	if cat == nil {
		return ErrUnknownChallenge
	}
	if _, _, ok := cat.Challenge(challengeID); !ok {
		return ErrUnknownChallenge
	}
	_, err := s.complete(ctx, learnerID, domain.CompletionChallenge, challengeID)
	return err
}

func (s *LearnerService) complete(ctx context.Context, learnerID string, kind domain.CompletionKind, itemID string) (bool, error) {
	l, err := s.repo.GetByID(ctx, learnerID)
	if err != nil {
		return false, err
	}
	if l == nil {
		return false, ErrLearnerNotFound
	}
	return s.repo.AddCompletion(ctx, learnerID, kind, itemID, s.nowF().UTC())
}

// Progress reports completion percentages per learning path, overall, and for challenges.
func (s *LearnerService) Progress(ctx context.Context, learnerID string) (*ProgressReport, error) {
	p, err := s.repo.GetProgress(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	r := &ProgressReport{
		CompletedLessons:    p.CompletedLessons,
		CompletedChallenges: p.CompletedChallenges,
		Paths:               map[string]float64{},
	}
	if cat := s.lessons.Catalog(); cat != nil {
		for _, path := range cat.Paths {
			r.Paths[path.Key] = cat.PathProgress(path.Key, p.CompletedLessons)
		}
		r.Overall = cat.OverallProgress(p.CompletedLessons)
	}
	if cat := s.challenges.Catalog(); cat != nil {
		r.Challenges = cat.Progress(p.CompletedChallenges)
	}
	return r, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
