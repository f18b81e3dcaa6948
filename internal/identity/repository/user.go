package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stockroom/stockroom-backend/internal/identity/domain"
	"github.com/stockroom/stockroom-backend/pkg/database"
	"github.com/stockroom/stockroom-backend/pkg/errors"
)

// UserRepository handles user persistence
type UserRepository struct {
	q database.Queryer
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db}
}

// WithTx returns a repository bound to the given transaction
func (r *UserRepository) WithTx(tx *sqlx.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, is_staff, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, date_joined
	`

	return r.q.QueryRowxContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.IsStaff, user.IsActive,
	).Scan(&user.ID, &user.DateJoined)
}

// GetByID returns a user by id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User

	query := `
		SELECT id, username, email, password_hash, is_staff, is_active, date_joined, last_login
		FROM users
		WHERE id = $1
	`

	if err := database.Get(ctx, r.q, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("user")
		}
		return nil, err
	}

	return &user, nil
}

// GetByUsername returns a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User

	query := `
		SELECT id, username, email, password_hash, is_staff, is_active, date_joined, last_login
		FROM users
		WHERE username = $1
	`

	if err := database.Get(ctx, r.q, &user, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("user")
		}
		return nil, err
	}

	return &user, nil
}

// List returns all users ordered by registration date, newest first
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User

	query := `
		SELECT id, username, email, password_hash, is_staff, is_active, date_joined, last_login
		FROM users
		ORDER BY date_joined DESC, id DESC
	`

	if err := database.Select(ctx, r.q, &users, query); err != nil {
		return nil, err
	}

	return users, nil
}

// CountByActivity returns the number of active and deactivated accounts
func (r *UserRepository) CountByActivity(ctx context.Context) (active, inactive int64, err error) {
	var counts struct {
		Active   int64 `db:"active"`
		Inactive int64 `db:"inactive"`
	}

	query := `
		SELECT COUNT(*) FILTER (WHERE is_active) AS active,
		       COUNT(*) FILTER (WHERE NOT is_active) AS inactive
		FROM users
	`

	if err := database.Get(ctx, r.q, &counts, query); err != nil {
		return 0, 0, err
	}

	return counts.Active, counts.Inactive, nil
}

// ExistsByUsername reports whether a username is taken
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool

	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`

	if err := database.Get(ctx, r.q, &exists, query, username); err != nil {
		return false, err
	}

	return exists, nil
}

// UpdatePassword replaces the stored password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("user")
	}

	return nil
}

// SetActive flips the soft-delete marker
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE users SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("user")
	}

	return nil
}

// UpdateLastLogin stamps the last successful authentication
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET last_login = $1 WHERE id = $2`, at, id)
	return err
}
