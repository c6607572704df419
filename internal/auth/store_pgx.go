package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGXStore reads users from Postgres.
type PGXStore struct {
	Pool *pgxpool.Pool
}

func NewPGXStore(pool *pgxpool.Pool) *PGXStore {
	return &PGXStore{Pool: pool}
}

func (s *PGXStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	const q = `SELECT id, username, pin, role FROM users WHERE username = $1`
	return s.scanUser(s.Pool.QueryRow(ctx, q, username))
}

func (s *PGXStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const q = `SELECT id, username, pin, role FROM users WHERE id = $1`
	return s.scanUser(s.Pool.QueryRow(ctx, q, id))
}

func (s *PGXStore) scanUser(row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PIN, &u.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
