package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	auditrepo "github.com/stockroom/stockroom-backend/internal/audit/repository"
	auditservice "github.com/stockroom/stockroom-backend/internal/audit/service"
	"github.com/stockroom/stockroom-backend/internal/inventory/repository"
	"github.com/stockroom/stockroom-backend/internal/policy"
	"github.com/stockroom/stockroom-backend/pkg/actor"
	"github.com/stockroom/stockroom-backend/pkg/database"
	"github.com/stockroom/stockroom-backend/pkg/errors"
	"github.com/stockroom/stockroom-backend/pkg/logger"
	"github.com/stockroom/stockroom-backend/pkg/messaging"
)

// ProfileDirectory resolves a user's department memberships for policy
// evaluation and department auto-assignment.
type ProfileDirectory interface {
	DepartmentIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Service implements inventory item operations behind the access policy
type Service struct {
	db        *database.DB
	items     *repository.ItemRepository
	directory ProfileDirectory
	audit     *auditservice.Service
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewService creates a new inventory service
func NewService(
	db *database.DB,
	items *repository.ItemRepository,
	directory ProfileDirectory,
	audit *auditservice.Service,
	publisher messaging.EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		db:        db,
		items:     items,
		directory: directory,
		audit:     audit,
		publisher: publisher,
		logger:    log.WithComponent("inventory"),
	}
}

// ItemRequest is the payload for creating or updating an item.
// Quantity and price must be non-negative; violations are rejected at
// validation time, before any persistence or audit write.
type ItemRequest struct {
	Name         string `json:"name" validate:"required,min=1,max=200"`
	Description  string `json:"description" validate:"max=2000"`
	Quantity     int    `json:"quantity" validate:"gte=0"`
	PriceCents   int64  `json:"price_cents" validate:"gte=0"`
	DepartmentID *int64 `json:"department_id"`
	AssignedToID *int64 `json:"assigned_to_id"`
}

// List returns the items visible to the actor: everything for staff,
// the owner/assignee/department union for members.
func (s *Service) List(ctx context.Context, act *actor.Actor) ([]*repository.Item, error) {
	if act == nil {
		return nil, errors.Unauthorized("authentication required")
	}

	if act.IsStaff {
		return s.items.ListAll(ctx)
	}

	return s.items.ListVisibleTo(ctx, act.ID)
}

// Get returns one item if the actor may see it
func (s *Service) Get(ctx context.Context, act *actor.Actor, id int64) (*repository.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	subject, err := s.subject(ctx, act)
	if err != nil {
		return nil, err
	}

	if d := policy.Evaluate(subject, policy.ActionViewItem, itemRef(item)); !d.Allowed {
		return nil, errors.Forbidden(d.Reason)
	}

	return item, nil
}

// Create adds an item with the actor as owner. Non-staff creators may
// not choose department or assignee: those inputs are stripped, and the
// creator's first department (lowest id) is auto-assigned when they
// have one.
func (s *Service) Create(ctx context.Context, act *actor.Actor, req *ItemRequest) (*repository.Item, error) {
	subject, err := s.subject(ctx, act)
	if err != nil {
		return nil, err
	}

	if d := policy.Evaluate(subject, policy.ActionCreateItem, nil); !d.Allowed {
		return nil, errors.Forbidden(d.Reason)
	}

	item := &repository.Item{
		Name:         req.Name,
		Description:  req.Description,
		Quantity:     req.Quantity,
		PriceCents:   req.PriceCents,
		OwnerID:      act.ID,
		DepartmentID: req.DepartmentID,
		AssignedToID: req.AssignedToID,
	}

	if !act.IsStaff {
		item.DepartmentID = nil
		item.AssignedToID = nil
		if len(subject.DepartmentIDs) > 0 {
			first := subject.DepartmentIDs[0]
			item.DepartmentID = &first
		}
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.items.WithTx(tx).Create(ctx, item); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, act, auditrepo.ActionCreate,
			"item", &item.ID, item.Name, fmt.Sprintf("item created (qty %d)", item.Quantity))
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, messaging.EventItemCreated, messaging.ItemCreatedEvent{
		ItemID:       item.ID,
		Name:         item.Name,
		OwnerID:      item.OwnerID,
		DepartmentID: item.DepartmentID,
		AssignedToID: item.AssignedToID,
	})

	return item, nil
}

// Update mutates an item if the actor is staff, the owner, the assignee
// or a member of the item's department. Non-staff callers cannot change
// department or assignee.
func (s *Service) Update(ctx context.Context, act *actor.Actor, id int64, req *ItemRequest) (*repository.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	subject, err := s.subject(ctx, act)
	if err != nil {
		return nil, err
	}

	if d := policy.Evaluate(subject, policy.ActionUpdateItem, itemRef(item)); !d.Allowed {
		return nil, errors.Forbidden(d.Reason)
	}

	item.Name = req.Name
	item.Description = req.Description
	item.Quantity = req.Quantity
	item.PriceCents = req.PriceCents
	if act.IsStaff {
		item.DepartmentID = req.DepartmentID
		item.AssignedToID = req.AssignedToID
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.items.WithTx(tx).Update(ctx, item); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, act, auditrepo.ActionUpdate,
			"item", &item.ID, item.Name, "item updated")
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, messaging.EventItemUpdated, messaging.ItemUpdatedEvent{
		ItemID:    item.ID,
		UpdatedBy: act.ID,
		Fields: map[string]any{
			"name":        item.Name,
			"quantity":    item.Quantity,
			"price_cents": item.PriceCents,
		},
	})

	return item, nil
}

// Delete removes an item. Only the owner or staff may delete; assignment
// and department membership are not enough.
func (s *Service) Delete(ctx context.Context, act *actor.Actor, id int64) error {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return err
	}

	subject, err := s.subject(ctx, act)
	if err != nil {
		return err
	}

	if d := policy.Evaluate(subject, policy.ActionDeleteItem, itemRef(item)); !d.Allowed {
		return errors.Forbidden(d.Reason)
	}

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.items.WithTx(tx).Delete(ctx, item.ID); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, act, auditrepo.ActionDelete,
			"item", &item.ID, item.Name, "item deleted")
	})
	if err != nil {
		return err
	}

	s.publish(ctx, messaging.EventItemDeleted, messaging.ItemDeletedEvent{
		ItemID:    item.ID,
		Name:      item.Name,
		DeletedBy: act.ID,
	})

	return nil
}

// Count returns the total item count for the admin dashboard
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.items.Count(ctx)
}

func (s *Service) subject(ctx context.Context, act *actor.Actor) (policy.Subject, error) {
	if act == nil {
		return policy.Subject{Role: policy.RoleGuest}, nil
	}

	var deptIDs []int64
	if !act.IsStaff {
		ids, err := s.directory.DepartmentIDs(ctx, act.ID)
		if err != nil {
			return policy.Subject{}, err
		}
		deptIDs = ids
	}

	return policy.NewSubject(act, deptIDs), nil
}

func itemRef(item *repository.Item) *policy.ItemRef {
	return &policy.ItemRef{
		OwnerID:      item.OwnerID,
		AssignedToID: item.AssignedToID,
		DepartmentID: item.DepartmentID,
	}
}

func (s *Service) publish(ctx context.Context, eventType string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
