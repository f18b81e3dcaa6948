// Package policy decides which user may view or mutate which resource.
// All permission checks in the service layer go through Evaluate so the
// rules live in one place.
package policy

import (
	"github.com/stockroom/stockroom-backend/pkg/actor"
)

// Role is the access level of a subject.
type Role int

const (
	// RoleGuest is an unauthenticated subject
	RoleGuest Role = iota
	// RoleMember is an authenticated non-staff user
	RoleMember
	// RoleAdministrator is a staff user with full access
	RoleAdministrator
)

// String returns the role name
func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleAdministrator:
		return "administrator"
	default:
		return "guest"
	}
}

// RoleOf derives the role from an actor. A nil actor is a guest.
func RoleOf(a *actor.Actor) Role {
	if a == nil {
		return RoleGuest
	}
	if a.IsStaff {
		return RoleAdministrator
	}
	return RoleMember
}

// Action is an operation a subject wants to perform.
type Action int

const (
	ActionViewItem Action = iota
	ActionCreateItem
	ActionUpdateItem
	ActionDeleteItem
	ActionAdminArea
)

// String returns the action name
func (a Action) String() string {
	switch a {
	case ActionViewItem:
		return "view_item"
	case ActionCreateItem:
		return "create_item"
	case ActionUpdateItem:
		return "update_item"
	case ActionDeleteItem:
		return "delete_item"
	case ActionAdminArea:
		return "admin_area"
	default:
		return "unknown"
	}
}

// Subject is the requesting user as the policy engine sees it.
type Subject struct {
	Role          Role
	UserID        int64
	DepartmentIDs []int64
}

// NewSubject builds a subject from an actor and its department memberships
func NewSubject(a *actor.Actor, departmentIDs []int64) Subject {
	s := Subject{Role: RoleOf(a), DepartmentIDs: departmentIDs}
	if a != nil {
		s.UserID = a.ID
	}
	return s
}

// ItemRef carries the item fields the policy rules inspect.
type ItemRef struct {
	OwnerID      int64
	AssignedToID *int64
	DepartmentID *int64
}

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Evaluate applies the access rules for the given action.
// Item-scoped actions require a non-nil item; ActionCreateItem and
// ActionAdminArea ignore it.
func Evaluate(s Subject, action Action, item *ItemRef) Decision {
	if s.Role == RoleGuest {
		return deny("authentication required")
	}

	switch action {
	case ActionCreateItem:
		return allow()

	case ActionAdminArea:
		if s.Role == RoleAdministrator {
			return allow()
		}
		return deny("administrator access required")

	case ActionViewItem:
		if item == nil {
			return deny("no item to evaluate")
		}
		if CanSeeItem(s, *item) {
			return allow()
		}
		return deny("you do not have access to this item")

	case ActionUpdateItem:
		if item == nil {
			return deny("no item to evaluate")
		}
		if s.Role == RoleAdministrator {
			return allow()
		}
		if item.OwnerID == s.UserID {
			return allow()
		}
		if item.AssignedToID != nil && *item.AssignedToID == s.UserID {
			return allow()
		}
		if item.DepartmentID != nil && s.inDepartment(*item.DepartmentID) {
			return allow()
		}
		return deny("you do not have permission to edit this item")

	case ActionDeleteItem:
		// Narrower than update: assignment and department membership
		// do not grant delete rights.
		if item == nil {
			return deny("no item to evaluate")
		}
		if s.Role == RoleAdministrator || item.OwnerID == s.UserID {
			return allow()
		}
		return deny("only the owner or an administrator can delete this item")
	}

	return deny("unknown action")
}

// CanSeeItem reports whether the subject's item list includes the item:
// administrators see everything, members see items they own, are assigned
// to, or whose department they belong to.
func CanSeeItem(s Subject, item ItemRef) bool {
	if s.Role == RoleAdministrator {
		return true
	}
	if s.Role == RoleGuest {
		return false
	}
	if item.OwnerID == s.UserID {
		return true
	}
	if item.AssignedToID != nil && *item.AssignedToID == s.UserID {
		return true
	}
	if item.DepartmentID != nil && s.inDepartment(*item.DepartmentID) {
		return true
	}
	return false
}

func (s Subject) inDepartment(departmentID int64) bool {
	for _, id := range s.DepartmentIDs {
		if id == departmentID {
			return true
		}
	}
	return false
}
