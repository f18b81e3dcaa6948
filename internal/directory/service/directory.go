package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	auditrepo "github.com/stockroom/stockroom-backend/internal/audit/repository"
	auditservice "github.com/stockroom/stockroom-backend/internal/audit/service"
	"github.com/stockroom/stockroom-backend/internal/directory/repository"
	identitydomain "github.com/stockroom/stockroom-backend/internal/identity/domain"
	"github.com/stockroom/stockroom-backend/internal/policy"
	"github.com/stockroom/stockroom-backend/pkg/actor"
	"github.com/stockroom/stockroom-backend/pkg/database"
	"github.com/stockroom/stockroom-backend/pkg/errors"
	"github.com/stockroom/stockroom-backend/pkg/logger"
)

// Service manages departments, user department membership and the
// new-user notification flag.
type Service struct {
	db          *database.DB
	departments *repository.DepartmentRepository
	profiles    *repository.ProfileRepository
	audit       *auditservice.Service
	logger      *logger.Logger
}

// NewService creates a new directory service
func NewService(
	db *database.DB,
	departments *repository.DepartmentRepository,
	profiles *repository.ProfileRepository,
	audit *auditservice.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		db:          db,
		departments: departments,
		profiles:    profiles,
		audit:       audit,
		logger:      log.WithComponent("directory"),
	}
}

// DepartmentRequest is the payload for creating or editing a department
type DepartmentRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

// ListDepartments returns all departments
func (s *Service) ListDepartments(ctx context.Context) ([]*repository.Department, error) {
	return s.departments.List(ctx)
}

// GetDepartment returns one department
func (s *Service) GetDepartment(ctx context.Context, id int64) (*repository.Department, error) {
	return s.departments.GetByID(ctx, id)
}

// CreateDepartment creates a department. Staff only.
func (s *Service) CreateDepartment(ctx context.Context, act *actor.Actor, req *DepartmentRequest) (*repository.Department, error) {
	if d := policy.Evaluate(policy.NewSubject(act, nil), policy.ActionAdminArea, nil); !d.Allowed {
		return nil, errors.Forbidden(d.Reason)
	}

	dept := &repository.Department{Name: req.Name, Description: req.Description}

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.departments.WithTx(tx).Create(ctx, dept); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, act, auditrepo.ActionCreate,
			"department", &dept.ID, dept.Name, "department created")
	})
	if err != nil {
		return nil, err
	}

	return dept, nil
}

// UpdateDepartment edits a department's name and description. Staff only.
func (s *Service) UpdateDepartment(ctx context.Context, act *actor.Actor, id int64, req *DepartmentRequest) (*repository.Department, error) {
	if d := policy.Evaluate(policy.NewSubject(act, nil), policy.ActionAdminArea, nil); !d.Allowed {
		return nil, errors.Forbidden(d.Reason)
	}

	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dept.Name = req.Name
	dept.Description = req.Description

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.departments.WithTx(tx).Update(ctx, dept); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, act, auditrepo.ActionUpdate,
			"department", &dept.ID, dept.Name, "department updated")
	})
	if err != nil {
		return nil, err
	}

	return dept, nil
}

// DeleteDepartment removes a department. Staff only, and rejected while
// any inventory item still references the department.
func (s *Service) DeleteDepartment(ctx context.Context, act *actor.Actor, id int64) error {
	if d := policy.Evaluate(policy.NewSubject(act, nil), policy.ActionAdminArea, nil); !d.Allowed {
		return errors.Forbidden(d.Reason)
	}

	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.departments.ItemCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.Conflict(fmt.Sprintf("cannot delete department %q: %d inventory item(s) still reference it", dept.Name, count))
	}

	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		// Re-check inside the transaction so a concurrently created
		// item cannot slip past the guard.
		count, err := s.departments.WithTx(tx).ItemCount(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return errors.Conflict(fmt.Sprintf("cannot delete department %q: %d inventory item(s) still reference it", dept.Name, count))
		}

		if err := s.departments.WithTx(tx).Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, act, auditrepo.ActionDelete,
			"department", &dept.ID, dept.Name, "department deleted")
	})
}

// GetProfile returns the user's profile, creating it on first access
func (s *Service) GetProfile(ctx context.Context, userID int64) (*repository.Profile, error) {
	return s.profiles.GetOrCreate(ctx, userID)
}

// DepartmentIDs returns the user's department memberships ordered by
// department id
func (s *Service) DepartmentIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.profiles.DepartmentIDs(ctx, userID)
}

// SetUserDepartments replaces a user's full membership set. Staff only.
func (s *Service) SetUserDepartments(ctx context.Context, act *actor.Actor, user *identitydomain.User, departmentIDs []int64) error {
	if d := policy.Evaluate(policy.NewSubject(act, nil), policy.ActionAdminArea, nil); !d.Allowed {
		return errors.Forbidden(d.Reason)
	}

	for _, deptID := range departmentIDs {
		if _, err := s.departments.GetByID(ctx, deptID); err != nil {
			return err
		}
	}

	profile, err := s.profiles.GetOrCreate(ctx, user.ID)
	if err != nil {
		return err
	}

	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.profiles.WithTx(tx).ReplaceDepartments(ctx, profile.ID, departmentIDs); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, act, auditrepo.ActionUpdate,
			"user_departments", &user.ID, user.Username,
			fmt.Sprintf("departments replaced with %v", departmentIDs))
	})
}

// UserRegistered handles the registration event: it creates the new
// user's profile and, for non-staff registrations, flags every staff
// profile as having unseen new users. Staff registrations do not raise
// the flag.
func (s *Service) UserRegistered(ctx context.Context, user *identitydomain.User) error {
	if _, err := s.profiles.GetOrCreate(ctx, user.ID); err != nil {
		return err
	}

	if user.IsStaff {
		return nil
	}

	return s.profiles.MarkAllStaffPending(ctx)
}

// MarkSeen clears the caller's notification flag
func (s *Service) MarkSeen(ctx context.Context, userID int64) error {
	return s.profiles.MarkSeen(ctx, userID)
}

// HasSeenNewUsers reads the caller's notification flag
func (s *Service) HasSeenNewUsers(ctx context.Context, userID int64) (bool, error) {
	return s.profiles.HasSeenNewUsers(ctx, userID)
}
