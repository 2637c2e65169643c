package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, anonymous, created_at, last_sign_in_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Anonymous, u.CreatedAt, u.LastSignInAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by UID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	const q = `
SELECT id, anonymous, created_at, last_sign_in_at
FROM users WHERE id=$1`
	var u model.User
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Anonymous, &u.CreatedAt, &u.LastSignInAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// TouchSignIn bumps last_sign_in_at, inserting a non-anonymous row for an unknown UID.
func (r *UserRepo) TouchSignIn(ctx context.Context, id string) (*model.User, error) {
	const q = `
INSERT INTO users (id, anonymous)
VALUES ($1, false)
ON CONFLICT (id) DO UPDATE SET last_sign_in_at = now()
RETURNING id, anonymous, created_at, last_sign_in_at`
	var u model.User
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Anonymous, &u.CreatedAt, &u.LastSignInAt); err != nil {
		return nil, err
	}
	return &u, nil
}
