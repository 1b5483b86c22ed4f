package domain

import "time"

// FreeGenerationLimit is how many AI quizzes a non-premium user may generate.
const FreeGenerationLimit = 3

// Unanswered is the sentinel answer index for a skipped question.
// Valid option indexes are 0-3, so it can never match a correct answer.
const Unanswered = -1

// User is the mutable aggregate holding all per-player counters.
// Points is the sole source of truth for Level; the stored level is a cache
// recomputed inside the same update that mutates points.
type User struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	Points             int        `json:"points"`
	Level              int        `json:"level"`
	TotalScore         int        `json:"totalScore"` // lifetime correct answers
	TotalQuizzesPlayed int        `json:"totalQuizzesPlayed"`
	AIQuizzesGenerated int        `json:"aiQuizzesGenerated"`
	IsPremium          bool       `json:"isPremium"`
	PremiumExpiresAt   *time.Time `json:"premiumExpiresAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// EffectivePremium reports whether premium is active at the given instant.
// A nil expiry on a premium account never expires.
func (u User) EffectivePremium(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	return u.PremiumExpiresAt == nil || now.Before(*u.PremiumExpiresAt)
}

// Question is a single multiple-choice question with exactly four options.
type Question struct {
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"` // zero-based index into Options
	Explanation   string   `json:"explanation,omitempty"`
}

// Quiz is immutable once created except for the TimesPlayed counter.
// Difficulty (0-10) is shared by all questions.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Topic       string     `json:"topic,omitempty"`
	Category    string     `json:"category,omitempty"`
	Difficulty  int        `json:"difficulty"`
	Questions   []Question `json:"questions"`
	OwnerID     string     `json:"userId"`
	TimesPlayed int        `json:"timesPlayed"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// AnswerDetail records one graded answer inside a Result.
type AnswerDetail struct {
	QuestionIndex  int  `json:"questionIndex"`
	SelectedAnswer int  `json:"selectedAnswer"`
	IsCorrect      bool `json:"isCorrect"`
}

// Result is an append-only record of one submission attempt. A user may hold
// several results for the same quiz; readers pick the most recent.
type Result struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	QuizID         string         `json:"quizId"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Percentage     int            `json:"percentage"`
	Answers        []AnswerDetail `json:"answers"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// LeaderboardEntry is a derived row, computed fresh on every read.
type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	Points       int    `json:"points"`
	Level        int    `json:"level"`
	QuizzesTaken int    `json:"quizzesTaken"`
}

// ScoreEvent is broadcast to connected observers after each scoring update.
type ScoreEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	Level    int    `json:"level"`
}

// ProgressionUpdate summarizes the atomic user-counter update applied on a
// successful submission.
type ProgressionUpdate struct {
	Points             int  `json:"points"`
	Level              int  `json:"level"`
	LeveledUp          bool `json:"leveledUp"`
	TotalQuizzesPlayed int  `json:"totalQuizzesPlayed"`
}

// GeneratedQuiz is the payload returned by the external quiz generator before
// it is persisted.
type GeneratedQuiz struct {
	Title     string     `json:"title"`
	Topic     string     `json:"topic"`
	Category  string     `json:"category"`
	Questions []Question `json:"questions"`
}
