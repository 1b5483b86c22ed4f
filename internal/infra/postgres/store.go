// Package postgres persists users, quizzes and results in Postgres via pgx.
// Counter mutations use single-statement relative increments so concurrent
// submissions for one user serialize at the row instead of losing updates.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping verifies connectivity; used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
