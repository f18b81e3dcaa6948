package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stockroom/stockroom-backend/pkg/actor"
)

func ptr(v int64) *int64 {
	return &v
}

func TestRoleOf(t *testing.T) {
	assert.Equal(t, RoleGuest, RoleOf(nil))
	assert.Equal(t, RoleMember, RoleOf(&actor.Actor{ID: 1}))
	assert.Equal(t, RoleAdministrator, RoleOf(&actor.Actor{ID: 1, IsStaff: true}))
}

func TestCanSeeItem(t *testing.T) {
	admin := Subject{Role: RoleAdministrator, UserID: 1}
	member := Subject{Role: RoleMember, UserID: 2, DepartmentIDs: []int64{10}}

	tests := []struct {
		name    string
		subject Subject
		item    ItemRef
		want    bool
	}{
		{"admin sees unrelated item", admin, ItemRef{OwnerID: 99}, true},
		{"member sees owned item", member, ItemRef{OwnerID: 2}, true},
		{"member sees assigned item", member, ItemRef{OwnerID: 99, AssignedToID: ptr(2)}, true},
		{"member sees department item", member, ItemRef{OwnerID: 99, DepartmentID: ptr(10)}, true},
		{"member blind to unrelated item", member, ItemRef{OwnerID: 99}, false},
		{"member blind to other department", member, ItemRef{OwnerID: 99, DepartmentID: ptr(11)}, false},
		{"member blind to other assignee", member, ItemRef{OwnerID: 99, AssignedToID: ptr(3)}, false},
		{"guest sees nothing", Subject{Role: RoleGuest}, ItemRef{OwnerID: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanSeeItem(tt.subject, tt.item))
		})
	}
}

func TestEvaluateUpdate(t *testing.T) {
	item := ItemRef{OwnerID: 1, AssignedToID: ptr(2), DepartmentID: ptr(10)}

	tests := []struct {
		name    string
		subject Subject
		want    bool
	}{
		{"admin", Subject{Role: RoleAdministrator, UserID: 99}, true},
		{"owner", Subject{Role: RoleMember, UserID: 1}, true},
		{"assignee", Subject{Role: RoleMember, UserID: 2}, true},
		{"department member", Subject{Role: RoleMember, UserID: 3, DepartmentIDs: []int64{10}}, true},
		{"unrelated member", Subject{Role: RoleMember, UserID: 4}, false},
		{"guest", Subject{Role: RoleGuest}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.subject, ActionUpdateItem, &item)
			assert.Equal(t, tt.want, d.Allowed)
			if !tt.want {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestEvaluateDeleteIsNarrowerThanUpdate(t *testing.T) {
	item := ItemRef{OwnerID: 1, AssignedToID: ptr(2), DepartmentID: ptr(10)}

	tests := []struct {
		name    string
		subject Subject
		want    bool
	}{
		{"admin", Subject{Role: RoleAdministrator, UserID: 99}, true},
		{"owner", Subject{Role: RoleMember, UserID: 1}, true},
		{"assignee denied", Subject{Role: RoleMember, UserID: 2}, false},
		{"department member denied", Subject{Role: RoleMember, UserID: 3, DepartmentIDs: []int64{10}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.subject, ActionDeleteItem, &item)
			assert.Equal(t, tt.want, d.Allowed)
		})
	}
}

func TestEvaluateAdminArea(t *testing.T) {
	assert.True(t, Evaluate(Subject{Role: RoleAdministrator, UserID: 1}, ActionAdminArea, nil).Allowed)
	assert.False(t, Evaluate(Subject{Role: RoleMember, UserID: 2}, ActionAdminArea, nil).Allowed)
	assert.False(t, Evaluate(Subject{Role: RoleGuest}, ActionAdminArea, nil).Allowed)
}

func TestEvaluateCreate(t *testing.T) {
	assert.True(t, Evaluate(Subject{Role: RoleMember, UserID: 2}, ActionCreateItem, nil).Allowed)
	assert.True(t, Evaluate(Subject{Role: RoleAdministrator, UserID: 1}, ActionCreateItem, nil).Allowed)
	assert.False(t, Evaluate(Subject{Role: RoleGuest}, ActionCreateItem, nil).Allowed)
}
