package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"

	"quizarena-service/internal/domain"
)

const userColumns = `id, username, email, points, level, total_score,
	total_quizzes_played, ai_quizzes_generated, is_premium, premium_expires_at, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	var expires *time.Time
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Points, &u.Level, &u.TotalScore,
		&u.TotalQuizzesPlayed, &u.AIQuizzesGenerated, &u.IsPremium, &expires, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.PremiumExpiresAt = expires
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	return scanUser(row)
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if user.Level == 0 {
		user.Level = 1
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, points, level, total_score,
			total_quizzes_played, ai_quizzes_generated, is_premium, premium_expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		user.ID, user.Username, user.Email, user.Points, user.Level, user.TotalScore,
		user.TotalQuizzesPlayed, user.AIQuizzesGenerated, user.IsPremium, user.PremiumExpiresAt, user.CreatedAt)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// ConsumeGeneration burns one free-tier slot. The WHERE clause is the
// admission control: once the counter reaches the limit no concurrent
// request can push it further, whatever its earlier pre-check saw.
func (s *Store) ConsumeGeneration(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET ai_quizzes_generated = ai_quizzes_generated + 1
		WHERE id=$1 AND ai_quizzes_generated < $2`,
		userID, domain.FreeGenerationLimit)
	if err != nil {
		return fmt.Errorf("consume generation: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	return domain.ErrFreeTierLimit
}

// rankOrder is the leaderboard ordering rule; TrueRank's comparison below
// must agree with it.
const rankOrder = `ORDER BY points DESC, created_at ASC, username ASC`

func (s *Store) ListRanked(ctx context.Context, limit int) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE total_quizzes_played > 0 ` + rankOrder
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ranked: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// TrueRank counts the played users ordered strictly ahead of this user over
// the complete population; the public-view cap never applies here.
func (s *Store) TrueRank(ctx context.Context, userID string) (int, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user.TotalQuizzesPlayed == 0 {
		return 0, nil
	}
	var ahead int
	err = s.pool.QueryRow(ctx, `
		SELECT count(*) FROM users
		WHERE total_quizzes_played > 0
		  AND (points > $1
		       OR (points = $1 AND (created_at < $2
		            OR (created_at = $2 AND username < $3))))`,
		user.Points, user.CreatedAt, user.Username).Scan(&ahead)
	if err != nil {
		return 0, fmt.Errorf("true rank: %w", err)
	}
	return ahead + 1, nil
}
