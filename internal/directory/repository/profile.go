package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/stockroom/stockroom-backend/pkg/database"
)

// Profile holds per-user directory state: department memberships and the
// new-user notification flag. Profiles are created lazily and never
// deleted explicitly.
type Profile struct {
	ID              int64 `db:"id" json:"id"`
	UserID          int64 `db:"user_id" json:"user_id"`
	HasSeenNewUsers bool  `db:"has_seen_new_users" json:"has_seen_new_users"`

	DepartmentIDs []int64 `db:"-" json:"department_ids"`
}

// ProfileRepository handles user profile persistence
type ProfileRepository struct {
	q database.Queryer
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{q: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ProfileRepository) WithTx(tx *sqlx.Tx) *ProfileRepository {
	return &ProfileRepository{q: tx}
}

// GetOrCreate returns the profile for the user, creating a fresh one
// (flag cleared, no departments) if none exists yet.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, userID int64) (*Profile, error) {
	var profile Profile

	query := `
		SELECT id, user_id, has_seen_new_users
		FROM user_profiles
		WHERE user_id = $1
	`

	err := database.Get(ctx, r.q, &profile, query, userID)
	if err == sql.ErrNoRows {
		insert := `
			INSERT INTO user_profiles (user_id)
			VALUES ($1)
			ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			RETURNING id, user_id, has_seen_new_users
		`
		err = r.q.QueryRowxContext(ctx, insert, userID).
			Scan(&profile.ID, &profile.UserID, &profile.HasSeenNewUsers)
	}
	if err != nil {
		return nil, err
	}

	ids, err := r.departmentIDs(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	profile.DepartmentIDs = ids

	return &profile, nil
}

// DepartmentIDs returns the user's department ids ordered by department
// id. The lowest id is the deterministic "first" department used for
// auto-assignment. A user without a profile has no departments.
func (r *ProfileRepository) DepartmentIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64

	query := `
		SELECT pd.department_id
		FROM profile_departments pd
		JOIN user_profiles up ON up.id = pd.profile_id
		WHERE up.user_id = $1
		ORDER BY pd.department_id
	`

	if err := database.Select(ctx, r.q, &ids, query, userID); err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *ProfileRepository) departmentIDs(ctx context.Context, profileID int64) ([]int64, error) {
	var ids []int64

	query := `
		SELECT department_id
		FROM profile_departments
		WHERE profile_id = $1
		ORDER BY department_id
	`

	if err := database.Select(ctx, r.q, &ids, query, profileID); err != nil {
		return nil, err
	}

	return ids, nil
}

// ReplaceDepartments replaces the user's full membership set.
// Set-replace semantics: existing memberships not in departmentIDs are
// removed.
func (r *ProfileRepository) ReplaceDepartments(ctx context.Context, profileID int64, departmentIDs []int64) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM profile_departments WHERE profile_id = $1`, profileID); err != nil {
		return err
	}

	for _, deptID := range departmentIDs {
		if _, err := r.q.ExecContext(ctx,
			`INSERT INTO profile_departments (profile_id, department_id) VALUES ($1, $2)`,
			profileID, deptID); err != nil {
			return err
		}
	}

	return nil
}

// MarkAllStaffPending flags every staff profile as having unseen new
// users, creating profiles for staff accounts that lack one.
func (r *ProfileRepository) MarkAllStaffPending(ctx context.Context) error {
	query := `
		INSERT INTO user_profiles (user_id, has_seen_new_users)
		SELECT id, FALSE FROM users WHERE is_staff = TRUE
		ON CONFLICT (user_id) DO UPDATE SET has_seen_new_users = FALSE
	`

	_, err := r.q.ExecContext(ctx, query)
	return err
}

// MarkSeen clears the notification flag for one user
func (r *ProfileRepository) MarkSeen(ctx context.Context, userID int64) error {
	query := `
		INSERT INTO user_profiles (user_id, has_seen_new_users)
		VALUES ($1, TRUE)
		ON CONFLICT (user_id) DO UPDATE SET has_seen_new_users = TRUE
	`

	_, err := r.q.ExecContext(ctx, query, userID)
	return err
}

// HasSeenNewUsers reads the notification flag. A missing profile reads
// as cleared, matching the fresh-profile default.
func (r *ProfileRepository) HasSeenNewUsers(ctx context.Context, userID int64) (bool, error) {
	var seen bool

	query := `
		SELECT COALESCE(
			(SELECT has_seen_new_users FROM user_profiles WHERE user_id = $1),
			TRUE
		)
	`

	if err := database.Get(ctx, r.q, &seen, query, userID); err != nil {
		return false, err
	}

	return seen, nil
}
