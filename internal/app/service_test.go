package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"quizarena-service/internal/app"
	"quizarena-service/internal/domain"
	"quizarena-service/internal/infra/memory"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type stubGenerator struct {
	quiz  domain.GeneratedQuiz
	err   error
	calls int
}

func (g *stubGenerator) Generate(context.Context, string, int) (domain.GeneratedQuiz, error) {
	g.calls++
	return g.quiz, g.err
}

type recordingNotifier struct {
	events []domain.ScoreEvent
}

func (n *recordingNotifier) Publish(event domain.ScoreEvent) {
	n.events = append(n.events, event)
}

func generatedQuiz() domain.GeneratedQuiz {
	g := domain.GeneratedQuiz{Title: "Go Basics", Topic: "Go", Category: "Programming"}
	for i := 0; i < 10; i++ {
		g.Questions = append(g.Questions, domain.Question{
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
		})
	}
	return g
}

type fixture struct {
	store     *memory.Store
	service   *app.Service
	generator *stubGenerator
	notifier  *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	gen := &stubGenerator{quiz: generatedQuiz()}
	not := &recordingNotifier{}
	service := app.NewService(store, store, store, store, gen, not).
		WithClock(func() time.Time { return testNow })
	return &fixture{store: store, service: service, generator: gen, notifier: not}
}

func (f *fixture) seedUser(t *testing.T, user domain.User) domain.User {
	t.Helper()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = testNow.Add(-24 * time.Hour)
	}
	if user.Level == 0 {
		user.Level = user.Points/1000 + 1
	}
	f.store.SeedUser(user)
	return user
}

func (f *fixture) seedQuiz(t *testing.T, difficulty, questions int) domain.Quiz {
	t.Helper()
	quiz := domain.Quiz{ID: fmt.Sprintf("quiz-%d", difficulty), Title: "Seeded", Difficulty: difficulty, OwnerID: "owner", CreatedAt: testNow}
	for i := 0; i < questions; i++ {
		quiz.Questions = append(quiz.Questions, domain.Question{
			Text:          fmt.Sprintf("Q%d", i+1),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
		})
	}
	if err := f.store.CreateQuiz(context.Background(), quiz); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return quiz
}

func TestSubmitQuizAwardsPointsAndNotifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, domain.User{ID: "u1", Username: "alice"})
	quiz := f.seedQuiz(t, 4, 10)

	answers := make([]int, 10)
	for i := range answers {
		if i < 7 {
			answers[i] = quiz.Questions[i].CorrectAnswer
		} else {
			answers[i] = domain.Unanswered
		}
	}

	outcome, err := f.service.SubmitQuiz(ctx, "u1", quiz.ID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Score != 7 || outcome.Percentage != 70 || outcome.PointsEarned != 105 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Progression.Points != 105 || outcome.Progression.Level != 1 || outcome.Progression.LeveledUp {
		t.Fatalf("unexpected progression %+v", outcome.Progression)
	}

	user, err := f.store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Points != 105 || user.TotalQuizzesPlayed != 1 || user.TotalScore != 7 {
		t.Fatalf("counters not applied: %+v", user)
	}

	stored, err := f.store.GetQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if stored.TimesPlayed != 1 {
		t.Fatalf("quiz play counter not bumped: %d", stored.TimesPlayed)
	}

	if len(f.notifier.events) != 1 {
		t.Fatalf("expected exactly one scoring event, got %d", len(f.notifier.events))
	}
	ev := f.notifier.events[0]
	if ev.UserID != "u1" || ev.Username != "alice" || ev.Points != 105 || ev.Level != 1 {
		t.Fatalf("unexpected event %+v", ev)
	}

	result, err := f.service.QuizResult(ctx, "u1", quiz.ID)
	if err != nil {
		t.Fatalf("quiz result: %v", err)
	}
	if result.Score != 7 || result.TotalQuestions != 10 || len(result.Answers) != 10 {
		t.Fatalf("persisted result wrong: %+v", result)
	}
}

func TestSubmitQuizLevelUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, domain.User{ID: "u1", Username: "alice", Points: 950, Level: 1})
	quiz := f.seedQuiz(t, 3, 10) // medium: 15 pts per correct

	answers := make([]int, 10)
	for i := range answers {
		if i < 7 {
			answers[i] = quiz.Questions[i].CorrectAnswer
		} else {
			answers[i] = domain.Unanswered
		}
	}
	outcome, err := f.service.SubmitQuiz(ctx, "u1", quiz.ID, answers)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.Progression.Points != 1055 || outcome.Progression.Level != 2 || !outcome.Progression.LeveledUp {
		t.Fatalf("expected level-up to 2 at 1055 points, got %+v", outcome.Progression)
	}
}

func TestSubmitQuizErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, domain.User{ID: "u1", Username: "alice"})
	quiz := f.seedQuiz(t, 4, 10)

	if _, err := f.service.SubmitQuiz(ctx, "u1", "missing", make([]int, 10)); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if _, err := f.service.SubmitQuiz(ctx, "ghost", quiz.ID, make([]int, 10)); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := f.service.SubmitQuiz(ctx, "u1", quiz.ID, make([]int, 3)); !errors.Is(err, domain.ErrInvalidAnswers) {
		t.Fatalf("expected ErrInvalidAnswers, got %v", err)
	}
	if len(f.notifier.events) != 0 {
		t.Fatalf("failed submissions must not notify, got %d events", len(f.notifier.events))
	}
}

func TestGenerateQuizConsumesFreeQuota(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, domain.User{ID: "u1", Username: "alice", AIQuizzesGenerated: 2})

	quiz, decision, err := f.service.GenerateQuiz(ctx, "u1", "go", 5)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !decision.Allowed || decision.Remaining != 1 {
		t.Fatalf("unexpected decision %+v", decision)
	}
	if quiz.Difficulty != 5 || len(quiz.Questions) != 10 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}

	user, _ := f.store.GetUser(ctx, "u1")
	if user.AIQuizzesGenerated != 3 {
		t.Fatalf("expected counter 3, got %d", user.AIQuizzesGenerated)
	}

	// next request is denied
	_, decision, err = f.service.GenerateQuiz(ctx, "u1", "go", 5)
	if !errors.Is(err, domain.ErrFreeTierLimit) {
		t.Fatalf("expected ErrFreeTierLimit, got %v", err)
	}
	if !decision.LimitReached || decision.Message == "" {
		t.Fatalf("denial must carry limitReached and message: %+v", decision)
	}
	if f.generator.calls != 1 {
		t.Fatalf("denied request must not reach the generator, calls=%d", f.generator.calls)
	}
}

func TestGenerateQuizFailureDoesNotBurnQuota(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, domain.User{ID: "u1", Username: "alice", AIQuizzesGenerated: 1})
	f.generator.err = errors.New("model timeout")

	_, _, err := f.service.GenerateQuiz(ctx, "u1", "go", 5)
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	user, _ := f.store.GetUser(ctx, "u1")
	if user.AIQuizzesGenerated != 1 {
		t.Fatalf("failed generation must not consume quota, got %d", user.AIQuizzesGenerated)
	}
}

func TestGenerateQuizPremiumNeverConsumes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, domain.User{ID: "u1", Username: "alice", IsPremium: true, AIQuizzesGenerated: 3})

	for i := 0; i < 5; i++ {
		if _, _, err := f.service.GenerateQuiz(ctx, "u1", "go", 9); err != nil {
			t.Fatalf("premium generate %d: %v", i, err)
		}
	}
	user, _ := f.store.GetUser(ctx, "u1")
	if user.AIQuizzesGenerated != 3 {
		t.Fatalf("premium generation must not touch the counter, got %d", user.AIQuizzesGenerated)
	}
}

func TestGenerateQuizExpiredPremiumBehavesAsFree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	past := testNow.Add(-time.Hour)
	f.seedUser(t, domain.User{ID: "u1", Username: "alice", IsPremium: true, PremiumExpiresAt: &past, AIQuizzesGenerated: 3})

	_, decision, err := f.service.GenerateQuiz(ctx, "u1", "go", 5)
	if !errors.Is(err, domain.ErrFreeTierLimit) {
		t.Fatalf("expected ErrFreeTierLimit, got %v", err)
	}
	if !decision.LimitReached {
		t.Fatalf("expected limitReached, got %+v", decision)
	}
}

func TestGenerateQuizRejectsBadDifficulty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, domain.User{ID: "u1", Username: "alice"})

	if _, _, err := f.service.GenerateQuiz(ctx, "u1", "go", 11); !errors.Is(err, domain.ErrInvalidDifficulty) {
		t.Fatalf("expected ErrInvalidDifficulty, got %v", err)
	}
	if f.generator.calls != 0 {
		t.Fatal("invalid difficulty must be rejected before calling the generator")
	}
}

func TestLeaderboardAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	joined := testNow.Add(-48 * time.Hour)
	f.seedUser(t, domain.User{ID: "u1", Username: "alice", Points: 500, TotalQuizzesPlayed: 2, CreatedAt: joined})
	f.seedUser(t, domain.User{ID: "u2", Username: "bob", Points: 1500, TotalQuizzesPlayed: 5, CreatedAt: joined})
	f.seedUser(t, domain.User{ID: "u3", Username: "carol", Points: 9000, TotalQuizzesPlayed: 0, CreatedAt: joined})

	standings, err := f.service.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(standings.Entries) != 2 {
		t.Fatalf("never-played carol must be excluded: %+v", standings.Entries)
	}
	if standings.Entries[0].Username != "bob" || standings.Entries[0].Rank != 1 {
		t.Fatalf("bob should lead: %+v", standings.Entries)
	}

	stats, err := f.service.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Rank != 2 {
		t.Fatalf("alice true rank should be 2, got %d", stats.Rank)
	}

	// never-played user is unranked
	stats, err = f.service.Stats(ctx, "u3")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Rank != 0 {
		t.Fatalf("never-played user should be unranked, got %d", stats.Rank)
	}
}

func TestQuizHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, domain.User{ID: "u1", Username: "alice"})
	quiz := f.seedQuiz(t, 4, 4)

	answers := []int{0, 1, 2, 3}
	for i := 0; i < 3; i++ {
		if _, err := f.service.SubmitQuiz(ctx, "u1", quiz.ID, answers); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	items, err := f.service.QuizHistory(ctx, "u1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(items))
	}
	if items[0].Title != "Seeded" || items[0].Difficulty != 4 {
		t.Fatalf("history rows must join quiz fields: %+v", items[0])
	}
}

func TestProfileQuizzesRemaining(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedUser(t, domain.User{ID: "u1", Username: "alice", AIQuizzesGenerated: 2})
	f.seedUser(t, domain.User{ID: "u2", Username: "bob", IsPremium: true})

	view, err := f.service.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if view.QuizzesRemaining != "1" || view.IsPremium {
		t.Fatalf("unexpected profile %+v", view)
	}

	view, err = f.service.Profile(ctx, "u2")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if view.QuizzesRemaining != "unlimited" || !view.IsPremium {
		t.Fatalf("unexpected premium profile %+v", view)
	}
}
