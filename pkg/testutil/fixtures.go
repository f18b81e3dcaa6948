package testutil

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// UserFixture represents test user data
type UserFixture struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsStaff      bool
	IsActive     bool
	DateJoined   time.Time
}

// DepartmentFixture represents test department data
type DepartmentFixture struct {
	ID   int64
	Name string
}

// ItemFixture represents test inventory item data
type ItemFixture struct {
	ID           int64
	Name         string
	Description  string
	Quantity     int
	PriceCents   int64
	OwnerID      int64
	DepartmentID *int64
	AssignedToID *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int64
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int64 {
	f.sequence++
	return f.sequence
}

// User creates a user fixture with defaults
func (f *FixtureFactory) User(opts ...func(*UserFixture)) UserFixture {
	seq := f.nextSeq()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)

	user := UserFixture{
		ID:           seq,
		Username:     fmt.Sprintf("user%d", seq),
		Email:        fmt.Sprintf("user%d@example.com", seq),
		PasswordHash: string(hash),
		IsStaff:      false,
		IsActive:     true,
		DateJoined:   time.Now(),
	}

	for _, opt := range opts {
		opt(&user)
	}

	return user
}

// WithUsername sets the username
func WithUsername(username string) func(*UserFixture) {
	return func(u *UserFixture) {
		u.Username = username
	}
}

// WithEmail sets the user email
func WithEmail(email string) func(*UserFixture) {
	return func(u *UserFixture) {
		u.Email = email
	}
}

// WithStaff marks the user as staff
func WithStaff() func(*UserFixture) {
	return func(u *UserFixture) {
		u.IsStaff = true
	}
}

// WithInactive marks the user as deactivated
func WithInactive() func(*UserFixture) {
	return func(u *UserFixture) {
		u.IsActive = false
	}
}

// WithPassword sets the user password (hashed)
func WithPassword(password string) func(*UserFixture) {
	return func(u *UserFixture) {
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		u.PasswordHash = string(hash)
	}
}

// Department creates a department fixture with defaults
func (f *FixtureFactory) Department(opts ...func(*DepartmentFixture)) DepartmentFixture {
	seq := f.nextSeq()

	dept := DepartmentFixture{
		ID:   seq,
		Name: fmt.Sprintf("Department %d", seq),
	}

	for _, opt := range opts {
		opt(&dept)
	}

	return dept
}

// WithDepartmentName sets the department name
func WithDepartmentName(name string) func(*DepartmentFixture) {
	return func(d *DepartmentFixture) {
		d.Name = name
	}
}

// Item creates an inventory item fixture with defaults
func (f *FixtureFactory) Item(ownerID int64, opts ...func(*ItemFixture)) ItemFixture {
	seq := f.nextSeq()

	item := ItemFixture{
		ID:          seq,
		Name:        fmt.Sprintf("Test Item %d", seq),
		Description: "Test inventory item",
		Quantity:    10,
		PriceCents:  1999,
		OwnerID:     ownerID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	for _, opt := range opts {
		opt(&item)
	}

	return item
}

// WithItemName sets the item name
func WithItemName(name string) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.Name = name
	}
}

// WithQuantity sets the item quantity
func WithQuantity(qty int) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.Quantity = qty
	}
}

// WithPriceCents sets the item price
func WithPriceCents(cents int64) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.PriceCents = cents
	}
}

// WithItemDepartment sets the item's department
func WithItemDepartment(deptID int64) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.DepartmentID = &deptID
	}
}

// WithAssignee sets the item's assignee
func WithAssignee(userID int64) func(*ItemFixture) {
	return func(i *ItemFixture) {
		i.AssignedToID = &userID
	}
}
