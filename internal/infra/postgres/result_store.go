package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"quizarena-service/internal/domain"
)

const resultColumns = `id, user_id, quiz_id, score, total_questions, percentage, answers, created_at`

func scanResult(row pgx.Row) (domain.Result, error) {
	var r domain.Result
	var answers []byte
	err := row.Scan(&r.ID, &r.UserID, &r.QuizID, &r.Score, &r.TotalQuestions,
		&r.Percentage, &answers, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.Result{}, fmt.Errorf("scan result: %w", err)
	}
	if err := json.Unmarshal(answers, &r.Answers); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	return r, nil
}

// LatestResult picks the newest attempt; retakes append, never upsert.
func (s *Store) LatestResult(ctx context.Context, userID, quizID string) (domain.Result, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+resultColumns+` FROM results
		WHERE user_id=$1 AND quiz_id=$2
		ORDER BY created_at DESC LIMIT 1`, userID, quizID)
	return scanResult(row)
}

func (s *Store) RecentResults(ctx context.Context, userID string, limit int) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+resultColumns+` FROM results
		WHERE user_id=$1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent results: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) ResultTotals(ctx context.Context, userID string) (int, int, error) {
	var score, questions int
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(score),0), COALESCE(SUM(total_questions),0)
		FROM results WHERE user_id=$1`, userID).Scan(&score, &questions)
	if err != nil {
		return 0, 0, fmt.Errorf("result totals: %w", err)
	}
	return score, questions, nil
}
