package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"quizarena-service/internal/domain"
)

const quizColumns = `id, title, description, topic, category, difficulty, questions, owner_id, times_played, created_at`

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var q domain.Quiz
	var questions []byte
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.Topic, &q.Category,
		&q.Difficulty, &questions, &q.OwnerID, &q.TimesPlayed, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("scan quiz: %w", err)
	}
	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return q, nil
}

func (s *Store) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, id)
	return scanQuiz(row)
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quizzes (id, title, description, topic, category, difficulty, questions, owner_id, times_played, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		quiz.ID, quiz.Title, quiz.Description, quiz.Topic, quiz.Category,
		quiz.Difficulty, questions, quiz.OwnerID, quiz.TimesPlayed, quiz.CreatedAt)
	if err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}
