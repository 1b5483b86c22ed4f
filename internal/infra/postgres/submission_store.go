package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"quizarena-service/internal/domain"
	"quizarena-service/internal/progression"
)

// RecordSubmission commits the Result insert, the quiz play-counter bump and
// the user counter update in one transaction. The points update is a relative
// increment, so two concurrent submissions for the same user serialize on the
// row instead of overwriting each other; the stored level is recomputed from
// the fresh point total inside the same transaction.
func (s *Store) RecordSubmission(ctx context.Context, result domain.Result, pointsEarned int) (domain.ProgressionUpdate, error) {
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return domain.ProgressionUpdate{}, fmt.Errorf("marshal answers: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ProgressionUpdate{}, fmt.Errorf("begin submission tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO results (id, user_id, quiz_id, score, total_questions, percentage, answers, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		result.ID, result.UserID, result.QuizID, result.Score, result.TotalQuestions,
		result.Percentage, answers, result.CreatedAt)
	if err != nil {
		return domain.ProgressionUpdate{}, fmt.Errorf("insert result: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE quizzes SET times_played = times_played + 1 WHERE id=$1`, result.QuizID)
	if err != nil {
		return domain.ProgressionUpdate{}, fmt.Errorf("bump quiz plays: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ProgressionUpdate{}, domain.ErrQuizNotFound
	}

	var points, played int
	err = tx.QueryRow(ctx, `
		UPDATE users SET
			points = points + $2,
			total_score = total_score + $3,
			total_quizzes_played = total_quizzes_played + 1
		WHERE id=$1
		RETURNING points, total_quizzes_played`,
		result.UserID, pointsEarned, result.Score).Scan(&points, &played)
	if err != nil {
		return domain.ProgressionUpdate{}, fmt.Errorf("apply score: %w", err)
	}

	level := progression.Level(points)
	if _, err := tx.Exec(ctx, `UPDATE users SET level=$2 WHERE id=$1`, result.UserID, level); err != nil {
		return domain.ProgressionUpdate{}, fmt.Errorf("recompute level: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ProgressionUpdate{}, fmt.Errorf("commit submission: %w", err)
	}

	return domain.ProgressionUpdate{
		Points:             points,
		Level:              level,
		LeveledUp:          progression.LeveledUp(points-pointsEarned, points),
		TotalQuizzesPlayed: played,
	}, nil
}
