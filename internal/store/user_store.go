package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/raglegal/api/internal/model"
)

// UserStore persists accounts.
type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const query = `
		SELECT id, username, email, hashed_password, role, is_active
		FROM users
		WHERE username = $1`

	var u model.User
	if err := s.db.GetContext(ctx, &u, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `
		SELECT id, username, email, hashed_password, role, is_active
		FROM users
		WHERE id = $1`

	var u model.User
	if err := s.db.GetContext(ctx, &u, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &u, nil
}

func (s *UserStore) Create(ctx context.Context, u *model.User) error {
	const query = `
		INSERT INTO users (username, email, hashed_password, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := s.db.QueryRowxContext(ctx, query,
		u.Username, u.Email, u.HashedPassword, u.Role, u.IsActive,
	).Scan(&u.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// ListNonAdmin returns every reviewer/uploader account.
func (s *UserStore) ListNonAdmin(ctx context.Context) ([]model.User, error) {
	const query = `
		SELECT id, username, email, hashed_password, role, is_active
		FROM users
		WHERE role <> 'admin'
		ORDER BY id`

	var users []model.User
	if err := s.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *UserStore) Update(ctx context.Context, u *model.User) error {
	const query = `
		UPDATE users
		SET role = $1, is_active = $2
		WHERE id = $3`

	res, err := s.db.ExecContext(ctx, query, u.Role, u.IsActive, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
