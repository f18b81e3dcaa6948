package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stockroom/stockroom-backend/pkg/database"
)

// Audit actions. Every approved mutation records exactly one of these.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionLogin  = "LOGIN"
	ActionLogout = "LOGOUT"
)

// Entry represents an audit log entry.
// Entries are append-only, they are never updated or deleted.
type Entry struct {
	ID         int64     `db:"id" json:"id"`
	UserID     *int64    `db:"user_id" json:"user_id,omitempty"`
	Username   string    `db:"username" json:"username"`
	Action     string    `db:"action" json:"action"`
	ObjectType string    `db:"object_type" json:"object_type"`
	ObjectID   *int64    `db:"object_id" json:"object_id,omitempty"`
	ObjectRepr string    `db:"object_repr" json:"object_repr"`
	Detail     string    `db:"detail" json:"detail"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// EntryRepository handles audit log persistence.
// All operations are append-only: no UPDATE or DELETE is permitted.
type EntryRepository struct {
	q database.Queryer
}

// NewEntryRepository creates a new audit entry repository
func NewEntryRepository(db *database.DB) *EntryRepository {
	return &EntryRepository{q: db}
}

// WithTx returns a repository bound to the given transaction, so the
// audit row commits or rolls back together with the mutation it records.
func (r *EntryRepository) WithTx(tx *sqlx.Tx) *EntryRepository {
	return &EntryRepository{q: tx}
}

// Record appends a new audit entry
func (r *EntryRepository) Record(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO audit_log (
			user_id, username, action, object_type, object_id,
			object_repr, detail, ip_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	return r.q.QueryRowxContext(ctx, query,
		entry.UserID, entry.Username, entry.Action, entry.ObjectType,
		entry.ObjectID, entry.ObjectRepr, entry.Detail, entry.IPAddress,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// Recent returns the most recent entries, newest first
func (r *EntryRepository) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	var entries []*Entry

	query := `
		SELECT id, user_id, username, action, object_type, object_id,
		       object_repr, detail, ip_address, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	if err := database.Select(ctx, r.q, &entries, query, limit); err != nil {
		return nil, err
	}

	return entries, nil
}

// List returns entries newest first with pagination
func (r *EntryRepository) List(ctx context.Context, page, perPage int) ([]*Entry, int64, error) {
	var total int64
	if err := database.Get(ctx, r.q, &total, `SELECT COUNT(*) FROM audit_log`); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	query := `
		SELECT id, user_id, username, action, object_type, object_id,
		       object_repr, detail, ip_address, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	var entries []*Entry
	if err := database.Select(ctx, r.q, &entries, query, perPage, offset); err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
