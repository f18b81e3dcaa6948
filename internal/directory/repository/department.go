package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/stockroom/stockroom-backend/pkg/database"
	"github.com/stockroom/stockroom-backend/pkg/errors"
)

// Department is a named group users can belong to
type Department struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

// DepartmentRepository handles department persistence
type DepartmentRepository struct {
	q database.Queryer
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *database.DB) *DepartmentRepository {
	return &DepartmentRepository{q: db}
}

// WithTx returns a repository bound to the given transaction
func (r *DepartmentRepository) WithTx(tx *sqlx.Tx) *DepartmentRepository {
	return &DepartmentRepository{q: tx}
}

// Create inserts a new department
func (r *DepartmentRepository) Create(ctx context.Context, dept *Department) error {
	query := `INSERT INTO departments (name, description) VALUES ($1, $2) RETURNING id`
	return r.q.QueryRowxContext(ctx, query, dept.Name, dept.Description).Scan(&dept.ID)
}

// GetByID returns a department by id
func (r *DepartmentRepository) GetByID(ctx context.Context, id int64) (*Department, error) {
	var dept Department

	if err := database.Get(ctx, r.q, &dept,
		`SELECT id, name, description FROM departments WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("department")
		}
		return nil, err
	}

	return &dept, nil
}

// List returns all departments ordered by id
func (r *DepartmentRepository) List(ctx context.Context) ([]*Department, error) {
	var depts []*Department

	if err := database.Select(ctx, r.q, &depts,
		`SELECT id, name, description FROM departments ORDER BY id`); err != nil {
		return nil, err
	}

	return depts, nil
}

// Update renames or redescribes a department
func (r *DepartmentRepository) Update(ctx context.Context, dept *Department) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE departments SET name = $1, description = $2 WHERE id = $3`,
		dept.Name, dept.Description, dept.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("department")
	}

	return nil
}

// Delete removes a department. Callers must check ItemCount first: the
// delete is rejected while inventory items still reference it.
func (r *DepartmentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("department")
	}

	return nil
}

// ItemCount returns the number of inventory items referencing the department
func (r *DepartmentRepository) ItemCount(ctx context.Context, id int64) (int64, error) {
	var count int64

	if err := database.Get(ctx, r.q, &count,
		`SELECT COUNT(*) FROM items WHERE department_id = $1`, id); err != nil {
		return 0, err
	}

	return count, nil
}

// Count returns the total number of departments
func (r *DepartmentRepository) Count(ctx context.Context) (int64, error) {
	var count int64

	if err := database.Get(ctx, r.q, &count, `SELECT COUNT(*) FROM departments`); err != nil {
		return 0, err
	}

	return count, nil
}
