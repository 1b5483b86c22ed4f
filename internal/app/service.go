package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quizarena-service/internal/domain"
	"quizarena-service/internal/entitlement"
	"quizarena-service/internal/leaderboard"
	"quizarena-service/internal/scoring"
)

// UserRepository abstracts user storage (in-memory, Postgres, ...).
type UserRepository interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	// ConsumeGeneration burns one free-tier slot via a conditional atomic
	// increment. It returns domain.ErrFreeTierLimit when the counter is
	// already at the limit, including when a concurrent request won the race.
	ConsumeGeneration(ctx context.Context, userID string) error
	// ListRanked returns users who have played at least once, ordered by the
	// leaderboard rule, capped at limit (0 means no cap).
	ListRanked(ctx context.Context, limit int) ([]domain.User, error)
	// TrueRank is the user's 1-based position over the complete played
	// population, independent of any public-view cap. 0 means unranked.
	TrueRank(ctx context.Context, userID string) (int, error)
}

// QuizRepository stores quiz content.
type QuizRepository interface {
	GetQuiz(ctx context.Context, id string) (domain.Quiz, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// ResultRepository reads append-only submission results.
type ResultRepository interface {
	// LatestResult picks the most recent result for (user, quiz); retakes
	// keep every attempt, so the read must be deterministic.
	LatestResult(ctx context.Context, userID, quizID string) (domain.Result, error)
	RecentResults(ctx context.Context, userID string, limit int) ([]domain.Result, error)
	// ResultTotals sums lifetime correct answers and questions answered.
	ResultTotals(ctx context.Context, userID string) (score int, questions int, err error)
}

// SubmissionStore persists the Result and the user counter update as one
// atomic pair: an orphaned result with no point award would corrupt stats.
type SubmissionStore interface {
	RecordSubmission(ctx context.Context, result domain.Result, pointsEarned int) (domain.ProgressionUpdate, error)
}

// Generator is the external AI quiz author. Failures must not consume quota.
type Generator interface {
	Generate(ctx context.Context, topic string, difficulty int) (domain.GeneratedQuiz, error)
}

// Notifier publishes scoring events to connected observers, best-effort.
type Notifier interface {
	Publish(event domain.ScoreEvent)
}

// Service wires the quiz platform use cases together.
type Service struct {
	users       UserRepository
	quizzes     QuizRepository
	results     ResultRepository
	submissions SubmissionStore
	generator   Generator
	notifier    Notifier
	now         func() time.Time
}

func NewService(users UserRepository, quizzes QuizRepository, results ResultRepository, submissions SubmissionStore, generator Generator, notifier Notifier) *Service {
	return &Service{
		users:       users,
		quizzes:     quizzes,
		results:     results,
		submissions: submissions,
		generator:   generator,
		notifier:    notifier,
		now:         time.Now,
	}
}

// WithClock overrides the service clock; test-only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SubmissionOutcome is the boundary payload returned to the submitting client.
type SubmissionOutcome struct {
	ResultID          string                   `json:"resultId"`
	Score             int                      `json:"score"`
	Total             int                      `json:"total"`
	Percentage        int                      `json:"percentage"`
	PointsEarned      int                      `json:"pointsEarned"`
	PointsPerQuestion int                      `json:"pointsPerQuestion"`
	Results           []scoring.QuestionResult `json:"results"`
	Progression       domain.ProgressionUpdate `json:"progression"`
}

// SubmitQuiz grades an answer vector, records the attempt and the point award
// atomically, and broadcasts the scoring event once persistence succeeded.
func (s *Service) SubmitQuiz(ctx context.Context, userID, quizID string, answers []int) (SubmissionOutcome, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return SubmissionOutcome{}, err
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return SubmissionOutcome{}, err
	}

	graded, err := scoring.Grade(quiz, answers)
	if err != nil {
		return SubmissionOutcome{}, err
	}

	result := domain.Result{
		ID:             uuid.NewString(),
		UserID:         userID,
		QuizID:         quizID,
		Score:          graded.Score,
		TotalQuestions: graded.Total,
		Percentage:     graded.Percentage,
		Answers:        graded.Answers,
		CreatedAt:      s.now(),
	}

	update, err := s.submissions.RecordSubmission(ctx, result, graded.PointsEarned)
	if err != nil {
		return SubmissionOutcome{}, err
	}

	s.notifier.Publish(domain.ScoreEvent{
		UserID:   userID,
		Username: user.Username,
		Points:   update.Points,
		Level:    update.Level,
	})

	return SubmissionOutcome{
		ResultID:          result.ID,
		Score:             graded.Score,
		Total:             graded.Total,
		Percentage:        graded.Percentage,
		PointsEarned:      graded.PointsEarned,
		PointsPerQuestion: graded.PointsPerQuestion,
		Results:           graded.Results,
		Progression:       update,
	}, nil
}

// GenerateQuiz runs the entitlement gate, calls the external generator, and
// persists the quiz. The free counter is consumed only after generation
// succeeds; the conditional consume is the authoritative admission, so a
// racing request that loses it is denied even though the pre-check allowed it.
func (s *Service) GenerateQuiz(ctx context.Context, userID, topic string, difficulty int) (domain.Quiz, entitlement.Decision, error) {
	if _, _, err := scoring.Classify(difficulty); err != nil {
		return domain.Quiz{}, entitlement.Decision{}, err
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.Quiz{}, entitlement.Decision{}, err
	}

	decision := entitlement.Evaluate(user, s.now())
	if !decision.Allowed {
		return domain.Quiz{}, decision, domain.ErrFreeTierLimit
	}

	generated, err := s.generator.Generate(ctx, topic, difficulty)
	if err != nil {
		return domain.Quiz{}, decision, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	if !decision.Premium {
		if err := s.users.ConsumeGeneration(ctx, userID); err != nil {
			// A concurrent request may have taken the last slot after our
			// pre-check; re-evaluate so the caller sees the denial payload.
			if errors.Is(err, domain.ErrFreeTierLimit) {
				if fresh, gerr := s.users.GetUser(ctx, userID); gerr == nil {
					decision = entitlement.Evaluate(fresh, s.now())
				}
			}
			return domain.Quiz{}, decision, err
		}
	}

	quiz := domain.Quiz{
		ID:          uuid.NewString(),
		Title:       generated.Title,
		Description: fmt.Sprintf("AI-generated quiz on %s", generated.Topic),
		Topic:       generated.Topic,
		Category:    generated.Category,
		Difficulty:  difficulty,
		Questions:   generated.Questions,
		OwnerID:     userID,
		CreatedAt:   s.now(),
	}
	if quiz.Title == "" {
		quiz.Title = fmt.Sprintf("%s Quiz - Level %d", topic, difficulty)
	}
	if quiz.Topic == "" {
		quiz.Topic = topic
	}
	if err := s.quizzes.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, decision, err
	}
	return quiz, decision, nil
}

// CheckEntitlement answers the generation-gate boundary contract without
// consuming anything.
func (s *Service) CheckEntitlement(ctx context.Context, userID string) (entitlement.Decision, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return entitlement.Decision{}, err
	}
	return entitlement.Evaluate(user, s.now()), nil
}

// leaderboardCap bounds the public view; personal rank is never capped.
const leaderboardCap = 100

// Leaderboard computes a fresh ranked snapshot. Slightly stale reads are
// acceptable; no locking against concurrent score updates.
func (s *Service) Leaderboard(ctx context.Context) (leaderboard.Standings, error) {
	users, err := s.users.ListRanked(ctx, leaderboardCap)
	if err != nil {
		return leaderboard.Standings{}, err
	}
	return leaderboard.Segment(leaderboard.Rank(users)), nil
}

// ProfileView is the boundary payload for the profile page.
type ProfileView struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	CreatedAt          time.Time  `json:"createdAt"`
	TotalQuizzesPlayed int        `json:"totalQuizzesPlayed"`
	Points             int        `json:"points"`
	Level              int        `json:"level"`
	AIQuizzesGenerated int        `json:"aiQuizzesGenerated"`
	IsPremium          bool       `json:"isPremium"`
	PremiumExpiresAt   *time.Time `json:"premiumExpiresAt,omitempty"`
	QuizzesRemaining   string     `json:"quizzesRemaining"`
}

// Profile reports the user's account view with effective premium applied.
func (s *Service) Profile(ctx context.Context, userID string) (ProfileView, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return ProfileView{}, err
	}
	premium := user.EffectivePremium(s.now())
	remaining := "unlimited"
	if !premium {
		left := domain.FreeGenerationLimit - user.AIQuizzesGenerated
		if left < 0 {
			left = 0
		}
		remaining = fmt.Sprintf("%d", left)
	}
	return ProfileView{
		ID:                 user.ID,
		Username:           user.Username,
		Email:              user.Email,
		CreatedAt:          user.CreatedAt,
		TotalQuizzesPlayed: user.TotalQuizzesPlayed,
		Points:             user.Points,
		Level:              user.Level,
		AIQuizzesGenerated: user.AIQuizzesGenerated,
		IsPremium:          premium,
		PremiumExpiresAt:   user.PremiumExpiresAt,
		QuizzesRemaining:   remaining,
	}, nil
}

// StatsView is the boundary payload for personal statistics.
type StatsView struct {
	QuizzesTaken int `json:"quizzesTaken"`
	AverageScore int `json:"averageScore"`
	Rank         int `json:"rank"`
	Level        int `json:"level"`
	Points       int `json:"points"`
}

// Stats reports personal statistics. Rank is the true rank over the complete
// played population, not the position within the capped public view.
func (s *Service) Stats(ctx context.Context, userID string) (StatsView, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return StatsView{}, err
	}
	totalScore, totalQuestions, err := s.results.ResultTotals(ctx, userID)
	if err != nil {
		return StatsView{}, err
	}
	average := 0
	if totalQuestions > 0 {
		average = int(float64(totalScore)/float64(totalQuestions)*100 + 0.5)
	}
	rank, err := s.users.TrueRank(ctx, userID)
	if err != nil {
		return StatsView{}, err
	}
	return StatsView{
		QuizzesTaken: user.TotalQuizzesPlayed,
		AverageScore: average,
		Rank:         rank,
		Level:        user.Level,
		Points:       user.Points,
	}, nil
}

// HistoryItem is one row of the quiz-history view.
type HistoryItem struct {
	QuizID         string    `json:"id"`
	Title          string    `json:"title"`
	Topic          string    `json:"topic"`
	Difficulty     int       `json:"difficulty"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Percentage     int       `json:"percentage"`
	CompletedAt    time.Time `json:"completedAt"`
}

const historyLimit = 10

// QuizHistory lists the user's most recent attempts, newest first.
func (s *Service) QuizHistory(ctx context.Context, userID string) ([]HistoryItem, error) {
	results, err := s.results.RecentResults(ctx, userID, historyLimit)
	if err != nil {
		return nil, err
	}
	items := make([]HistoryItem, 0, len(results))
	for _, r := range results {
		item := HistoryItem{
			QuizID:         r.QuizID,
			Score:          r.Score,
			TotalQuestions: r.TotalQuestions,
			Percentage:     r.Percentage,
			CompletedAt:    r.CreatedAt,
		}
		// A deleted quiz still leaves the attempt visible.
		if quiz, err := s.quizzes.GetQuiz(ctx, r.QuizID); err == nil {
			item.Title = quiz.Title
			item.Topic = quiz.Topic
			item.Difficulty = quiz.Difficulty
		}
		items = append(items, item)
	}
	return items, nil
}

// QuizResult returns the user's most recent attempt at a quiz.
func (s *Service) QuizResult(ctx context.Context, userID, quizID string) (domain.Result, error) {
	return s.results.LatestResult(ctx, userID, quizID)
}

// RegisterUser creates a fresh account; identity fields come from the
// external auth collaborator.
func (s *Service) RegisterUser(ctx context.Context, username, email string) (domain.User, error) {
	return s.users.CreateUser(ctx, domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Level:     1,
		CreatedAt: s.now(),
	})
}

// GetQuiz loads one quiz.
func (s *Service) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

// ListQuizzes lists all quizzes, newest first.
func (s *Service) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.quizzes.ListQuizzes(ctx)
}
