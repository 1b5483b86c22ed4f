package scoring

import (
	"math"

	"quizarena-service/internal/domain"
)

// QuestionResult is the per-question breakdown returned for results review.
type QuestionResult struct {
	Question      string `json:"question"`
	UserAnswer    int    `json:"userAnswer"`
	CorrectAnswer int    `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	Explanation   string `json:"explanation,omitempty"`
}

// ScoreResult is the full outcome of grading one submission.
type ScoreResult struct {
	Score             int              `json:"score"`
	Total             int              `json:"total"`
	Percentage        int              `json:"percentage"`
	PointsEarned      int              `json:"pointsEarned"`
	PointsPerQuestion int              `json:"pointsPerQuestion"`
	Tier              Tier             `json:"tier"`
	Results           []QuestionResult `json:"results"`
	Answers           []domain.AnswerDetail
}

// Grade compares an answer vector against the quiz answer key. It is pure:
// no shared state is touched, and identical inputs always grade identically.
// The vector must have exactly one entry per question; domain.Unanswered
// marks a skipped question and can never match a correct index.
func Grade(quiz domain.Quiz, answers []int) (ScoreResult, error) {
	if len(answers) != len(quiz.Questions) {
		return ScoreResult{}, domain.ErrInvalidAnswers
	}

	tier, perCorrect, err := Classify(quiz.Difficulty)
	if err != nil {
		return ScoreResult{}, err
	}

	res := ScoreResult{
		Total:             len(quiz.Questions),
		PointsPerQuestion: perCorrect,
		Tier:              tier,
		Results:           make([]QuestionResult, 0, len(quiz.Questions)),
		Answers:           make([]domain.AnswerDetail, 0, len(quiz.Questions)),
	}

	for i, q := range quiz.Questions {
		correct := answers[i] == q.CorrectAnswer
		if correct {
			res.Score++
		}
		res.Results = append(res.Results, QuestionResult{
			Question:      q.Text,
			UserAnswer:    answers[i],
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     correct,
			Explanation:   q.Explanation,
		})
		res.Answers = append(res.Answers, domain.AnswerDetail{
			QuestionIndex:  i,
			SelectedAnswer: answers[i],
			IsCorrect:      correct,
		})
	}

	if res.Total > 0 {
		res.Percentage = int(math.Round(float64(res.Score) / float64(res.Total) * 100))
	}
	res.PointsEarned = res.Score * perCorrect
	return res, nil
}
