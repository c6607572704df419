package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGXStore implements Store on top of Postgres.
type PGXStore struct {
	Pool *pgxpool.Pool
}

func NewPGXStore(pool *pgxpool.Pool) *PGXStore {
	return &PGXStore{Pool: pool}
}

const accountColumns = `id, username, role, created_at`

func (s *PGXStore) List(ctx context.Context) ([]Account, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+accountColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	accounts := make([]Account, 0)
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Role, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *PGXStore) Get(ctx context.Context, id string) (Account, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
	var a Account
	if err := row.Scan(&a.ID, &a.Username, &a.Role, &a.CreatedAt); err != nil {
		return Account{}, mapPGError(err, "get user")
	}
	return a, nil
}

func (s *PGXStore) Create(ctx context.Context, username, storedPIN, role string) (Account, error) {
	row := s.Pool.QueryRow(ctx,
		`INSERT INTO users (username, pin, role) VALUES ($1, $2, $3) RETURNING `+accountColumns,
		username, storedPIN, role)
	var a Account
	if err := row.Scan(&a.ID, &a.Username, &a.Role, &a.CreatedAt); err != nil {
		return Account{}, mapPGError(err, "insert user")
	}
	return a, nil
}

func (s *PGXStore) Update(ctx context.Context, id, username, role string) (Account, error) {
	row := s.Pool.QueryRow(ctx,
		`UPDATE users SET username = $2, role = $3, updated_at = now() WHERE id = $1 RETURNING `+accountColumns,
		id, username, role)
	var a Account
	if err := row.Scan(&a.ID, &a.Username, &a.Role, &a.CreatedAt); err != nil {
		return Account{}, mapPGError(err, "update user")
	}
	return a, nil
}

func (s *PGXStore) UpdatePIN(ctx context.Context, id, storedPIN string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE users SET pin = $2, updated_at = now() WHERE id = $1`, id, storedPIN)
	if err != nil {
		return fmt.Errorf("update user pin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGXStore) Delete(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapPGError(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateUsername
	}
	return fmt.Errorf("%s: %w", op, err)
}
