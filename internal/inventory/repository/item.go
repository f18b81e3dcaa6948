package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stockroom/stockroom-backend/pkg/database"
	"github.com/stockroom/stockroom-backend/pkg/errors"
)

// Item represents an inventory item. Prices are stored in cents.
type Item struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	Quantity     int       `db:"quantity" json:"quantity"`
	PriceCents   int64     `db:"price_cents" json:"price_cents"`
	OwnerID      int64     `db:"owner_id" json:"owner_id"`
	DepartmentID *int64    `db:"department_id" json:"department_id,omitempty"`
	AssignedToID *int64    `db:"assigned_to_id" json:"assigned_to_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ItemRepository handles inventory item persistence
type ItemRepository struct {
	q database.Queryer
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{q: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ItemRepository) WithTx(tx *sqlx.Tx) *ItemRepository {
	return &ItemRepository{q: tx}
}

// Create inserts a new item
func (r *ItemRepository) Create(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO items (name, description, quantity, price_cents, owner_id, department_id, assigned_to_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	return r.q.QueryRowxContext(ctx, query,
		item.Name, item.Description, item.Quantity, item.PriceCents,
		item.OwnerID, item.DepartmentID, item.AssignedToID,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

// GetByID returns an item by id
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*Item, error) {
	var item Item

	query := `
		SELECT id, name, description, quantity, price_cents, owner_id,
		       department_id, assigned_to_id, created_at, updated_at
		FROM items
		WHERE id = $1
	`

	if err := database.Get(ctx, r.q, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("item")
		}
		return nil, err
	}

	return &item, nil
}

// ListAll returns every item, for administrators
func (r *ItemRepository) ListAll(ctx context.Context) ([]*Item, error) {
	var items []*Item

	query := `
		SELECT id, name, description, quantity, price_cents, owner_id,
		       department_id, assigned_to_id, created_at, updated_at
		FROM items
		ORDER BY id
	`

	if err := database.Select(ctx, r.q, &items, query); err != nil {
		return nil, err
	}

	return items, nil
}

// ListVisibleTo returns the union of items the user owns, is assigned
// to, or can see through department membership. DISTINCT collapses items
// matching more than one clause.
func (r *ItemRepository) ListVisibleTo(ctx context.Context, userID int64) ([]*Item, error) {
	var items []*Item

	query := `
		SELECT DISTINCT i.id, i.name, i.description, i.quantity, i.price_cents,
		       i.owner_id, i.department_id, i.assigned_to_id, i.created_at, i.updated_at
		FROM items i
		LEFT JOIN profile_departments pd ON pd.department_id = i.department_id
		LEFT JOIN user_profiles up ON up.id = pd.profile_id
		WHERE i.owner_id = $1 OR i.assigned_to_id = $1 OR up.user_id = $1
		ORDER BY i.id
	`

	if err := database.Select(ctx, r.q, &items, query, userID); err != nil {
		return nil, err
	}

	return items, nil
}

// Update persists the mutable item fields
func (r *ItemRepository) Update(ctx context.Context, item *Item) error {
	query := `
		UPDATE items
		SET name = $1, description = $2, quantity = $3, price_cents = $4,
		    department_id = $5, assigned_to_id = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	err := r.q.QueryRowxContext(ctx, query,
		item.Name, item.Description, item.Quantity, item.PriceCents,
		item.DepartmentID, item.AssignedToID, item.ID,
	).Scan(&item.UpdatedAt)
	if err == sql.ErrNoRows {
		return errors.NotFound("item")
	}
	return err
}

// Delete removes an item
func (r *ItemRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("item")
	}

	return nil
}

// Count returns the total number of items
func (r *ItemRepository) Count(ctx context.Context) (int64, error) {
	var count int64

	if err := database.Get(ctx, r.q, &count, `SELECT COUNT(*) FROM items`); err != nil {
		return 0, err
	}

	return count, nil
}
