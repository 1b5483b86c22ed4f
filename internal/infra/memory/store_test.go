package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizarena-service/internal/domain"
)

func seedPlayer(s *Store, id string, generated int) {
	s.SeedUser(domain.User{
		ID:                 id,
		Username:           id,
		Level:              1,
		CreatedAt:          time.Now(),
		AIQuizzesGenerated: generated,
	})
}

func TestConsumeGenerationStopsAtLimit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedPlayer(store, "u1", 0)

	for i := 0; i < domain.FreeGenerationLimit; i++ {
		if err := store.ConsumeGeneration(ctx, "u1"); err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
	}
	if err := store.ConsumeGeneration(ctx, "u1"); !errors.Is(err, domain.ErrFreeTierLimit) {
		t.Fatalf("expected ErrFreeTierLimit, got %v", err)
	}
	user, _ := store.GetUser(ctx, "u1")
	if user.AIQuizzesGenerated != domain.FreeGenerationLimit {
		t.Fatalf("counter overshot: %d", user.AIQuizzesGenerated)
	}
}

func TestConsumeGenerationRace(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	seedPlayer(store, "u1", 0)

	var wg sync.WaitGroup
	granted := make(chan struct{}, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.ConsumeGeneration(ctx, "u1") == nil {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for range granted {
		count++
	}
	if count != domain.FreeGenerationLimit {
		t.Fatalf("expected exactly %d grants under contention, got %d", domain.FreeGenerationLimit, count)
	}
}

func TestRecordSubmissionAppliesCountersAtomically(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SeedUser(domain.User{ID: "u1", Username: "u1", Points: 950, Level: 1, CreatedAt: time.Now()})
	if err := store.CreateQuiz(ctx, domain.Quiz{ID: "q1", Difficulty: 4, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	update, err := store.RecordSubmission(ctx, domain.Result{
		ID: "r1", UserID: "u1", QuizID: "q1", Score: 7, TotalQuestions: 10, Percentage: 70, CreatedAt: time.Now(),
	}, 105)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if update.Points != 1055 || update.Level != 2 || !update.LeveledUp || update.TotalQuizzesPlayed != 1 {
		t.Fatalf("unexpected update %+v", update)
	}

	user, _ := store.GetUser(ctx, "u1")
	if user.Points != 1055 || user.Level != 2 || user.TotalScore != 7 {
		t.Fatalf("counters wrong: %+v", user)
	}
	quiz, _ := store.GetQuiz(ctx, "q1")
	if quiz.TimesPlayed != 1 {
		t.Fatalf("quiz plays not bumped: %d", quiz.TimesPlayed)
	}
}

func TestRecordSubmissionConcurrentNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SeedUser(domain.User{ID: "u1", Username: "u1", Level: 1, CreatedAt: time.Now()})
	if err := store.CreateQuiz(ctx, domain.Quiz{ID: "q1", Difficulty: 0, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.RecordSubmission(ctx, domain.Result{
				ID: string(rune('a'+i%26)) + "-r", UserID: "u1", QuizID: "q1",
				Score: 1, TotalQuestions: 1, Percentage: 100, CreatedAt: time.Now(),
			}, 10)
			if err != nil {
				t.Errorf("record: %v", err)
			}
		}(i)
	}
	wg.Wait()

	user, _ := store.GetUser(ctx, "u1")
	if user.Points != n*10 || user.TotalQuizzesPlayed != n || user.TotalScore != n {
		t.Fatalf("lost updates: %+v", user)
	}
}

func TestRecordSubmissionUnknownReferences(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SeedUser(domain.User{ID: "u1", Username: "u1", Level: 1, CreatedAt: time.Now()})

	_, err := store.RecordSubmission(ctx, domain.Result{ID: "r1", UserID: "u1", QuizID: "nope", CreatedAt: time.Now()}, 10)
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	_, err = store.RecordSubmission(ctx, domain.Result{ID: "r1", UserID: "ghost", QuizID: "q1", CreatedAt: time.Now()}, 10)
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestLatestResultPicksMostRecent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SeedUser(domain.User{ID: "u1", Username: "u1", Level: 1, CreatedAt: time.Now()})
	if err := store.CreateQuiz(ctx, domain.Quiz{ID: "q1", Difficulty: 0, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	base := time.Now()
	for i, score := range []int{3, 9, 5} {
		_, err := store.RecordSubmission(ctx, domain.Result{
			ID: string(rune('a' + i)), UserID: "u1", QuizID: "q1",
			Score: score, TotalQuestions: 10, Percentage: score * 10,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}, score*10)
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	latest, err := store.LatestResult(ctx, "u1", "q1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Score != 5 {
		t.Fatalf("expected most recent attempt (score 5), got %d", latest.Score)
	}

	if _, err := store.LatestResult(ctx, "u1", "other"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected ErrResultNotFound, got %v", err)
	}
}

func TestResultTotals(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SeedUser(domain.User{ID: "u1", Username: "u1", Level: 1, CreatedAt: time.Now()})
	if err := store.CreateQuiz(ctx, domain.Quiz{ID: "q1", Difficulty: 0, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for i, score := range []int{4, 6} {
		if _, err := store.RecordSubmission(ctx, domain.Result{
			ID: string(rune('a' + i)), UserID: "u1", QuizID: "q1",
			Score: score, TotalQuestions: 10, CreatedAt: time.Now(),
		}, score*10); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	score, questions, err := store.ResultTotals(ctx, "u1")
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if score != 10 || questions != 20 {
		t.Fatalf("expected 10/20, got %d/%d", score, questions)
	}
}
