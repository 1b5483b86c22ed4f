// Package memory is an in-process store used for tests and dependency-free
// runs. It honors the same atomicity rules as the Postgres store: submission
// recording mutates the result log and the user counters under one lock, and
// free-tier consumption is a conditional increment.
package memory

import (
	"context"
	"sort"
	"sync"

	"quizarena-service/internal/domain"
	"quizarena-service/internal/leaderboard"
	"quizarena-service/internal/progression"
)

type Store struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	quizzes map[string]domain.Quiz
	results []domain.Result
}

func NewStore() *Store {
	return &Store{
		users:   make(map[string]domain.User),
		quizzes: make(map[string]domain.Quiz),
	}
}

func (s *Store) GetUser(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.Level == 0 {
		user.Level = progression.Level(user.Points)
	}
	s.users[user.ID] = user
	return user, nil
}

// SeedUser overwrites a user record; test helper.
func (s *Store) SeedUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *Store) ConsumeGeneration(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if user.AIQuizzesGenerated >= domain.FreeGenerationLimit {
		return domain.ErrFreeTierLimit
	}
	user.AIQuizzesGenerated++
	s.users[userID] = user
	return nil
}

func (s *Store) ListRanked(_ context.Context, limit int) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ranked := s.rankedLocked()
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *Store) TrueRank(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, u := range s.rankedLocked() {
		if u.ID == userID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (s *Store) rankedLocked() []domain.User {
	ranked := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		if u.TotalQuizzesPlayed > 0 {
			ranked = append(ranked, u)
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return leaderboard.Less(ranked[i], ranked[j]) })
	return ranked
}

func (s *Store) GetQuiz(_ context.Context, id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quizzes := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		quizzes = append(quizzes, q)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt) })
	return quizzes, nil
}

func (s *Store) LatestResult(_ context.Context, userID, quizID string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.Result
	for i := range s.results {
		r := &s.results[i]
		if r.UserID != userID || r.QuizID != quizID {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return *latest, nil
}

func (s *Store) RecentResults(_ context.Context, userID string, limit int) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mine := make([]domain.Result, 0)
	for _, r := range s.results {
		if r.UserID == userID {
			mine = append(mine, r)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	if limit > 0 && len(mine) > limit {
		mine = mine[:limit]
	}
	return mine, nil
}

func (s *Store) ResultTotals(_ context.Context, userID string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, questions := 0, 0
	for _, r := range s.results {
		if r.UserID == userID {
			score += r.Score
			questions += r.TotalQuestions
		}
	}
	return score, questions, nil
}

// RecordSubmission appends the result and applies the user counter update
// under one lock, mirroring the Postgres transaction.
func (s *Store) RecordSubmission(_ context.Context, result domain.Result, pointsEarned int) (domain.ProgressionUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[result.UserID]
	if !ok {
		return domain.ProgressionUpdate{}, domain.ErrUserNotFound
	}
	quiz, ok := s.quizzes[result.QuizID]
	if !ok {
		return domain.ProgressionUpdate{}, domain.ErrQuizNotFound
	}

	s.results = append(s.results, result)

	quiz.TimesPlayed++
	s.quizzes[result.QuizID] = quiz

	before := user.Points
	user.Points += pointsEarned
	user.TotalScore += result.Score
	user.TotalQuizzesPlayed++
	user.Level = progression.Level(user.Points)
	s.users[result.UserID] = user

	return domain.ProgressionUpdate{
		Points:             user.Points,
		Level:              user.Level,
		LeveledUp:          progression.LeveledUp(before, user.Points),
		TotalQuizzesPlayed: user.TotalQuizzesPlayed,
	}, nil
}
