package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditrepo "github.com/stockroom/stockroom-backend/internal/audit/repository"
	auditservice "github.com/stockroom/stockroom-backend/internal/audit/service"
	"github.com/stockroom/stockroom-backend/internal/inventory/repository"
	"github.com/stockroom/stockroom-backend/internal/inventory/service"
	"github.com/stockroom/stockroom-backend/pkg/actor"
	"github.com/stockroom/stockroom-backend/pkg/database"
	"github.com/stockroom/stockroom-backend/pkg/errors"
	"github.com/stockroom/stockroom-backend/pkg/httputil"
	"github.com/stockroom/stockroom-backend/pkg/logger"
	"github.com/stockroom/stockroom-backend/pkg/messaging"
	"github.com/stockroom/stockroom-backend/pkg/testutil"
)

// fakeDirectory returns a fixed department membership per user id.
type fakeDirectory struct {
	memberships map[int64][]int64
}

func (f *fakeDirectory) DepartmentIDs(_ context.Context, userID int64) ([]int64, error) {
	return f.memberships[userID], nil
}

type fixture struct {
	svc       *service.Service
	mockDB    *testutil.MockDB
	publisher *testutil.MockPublisher
	directory *fakeDirectory
}

func newFixture(t *testing.T) *fixture {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("test", "test")
	db := database.FromSqlx(mockDB.DB, log)

	dir := &fakeDirectory{memberships: map[int64][]int64{}}
	pub := testutil.NewMockPublisher()

	items := repository.NewItemRepository(db)
	audit := auditservice.NewService(auditrepo.NewEntryRepository(db), log)
	svc := service.NewService(db, items, dir, audit, pub, log)

	return &fixture{svc: svc, mockDB: mockDB, publisher: pub, directory: dir}
}

func staffActor(id int64, username string) *actor.Actor {
	return &actor.Actor{ID: id, Username: username, IsStaff: true, SourceIP: "10.0.0.1"}
}

func memberActor(id int64, username string) *actor.Actor {
	return &actor.Actor{ID: id, Username: username, SourceIP: "10.0.0.2"}
}

func ptr(v int64) *int64 { return &v }

func TestCreate_NonStaffStripsAssignmentAndAutoAssignsFirstDepartment(t *testing.T) {
	f := newFixture(t)
	defer f.mockDB.Close()

	act := memberActor(10, "alice")
	f.directory.memberships[10] = []int64{2, 5}

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectQuery("INSERT INTO items").
		WithArgs("Widget", "", 5, int64(1999), int64(10), int64(2), nil).
		WillReturnRows(testutil.MockRows("id", "created_at", "updated_at").
			AddRow(int64(1), time.Now(), time.Now()))
	f.mockDB.ExpectQuery("INSERT INTO audit_log").
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(int64(1), time.Now()))
	f.mockDB.ExpectCommit()

	item, err := f.svc.Create(context.Background(), act, &service.ItemRequest{
		Name:         "Widget",
		Quantity:     5,
		PriceCents:   1999,
		DepartmentID: ptr(9),
		AssignedToID: ptr(3),
	})
	require.NoError(t, err)

	require.NotNil(t, item.DepartmentID)
	assert.Equal(t, int64(2), *item.DepartmentID)
	assert.Nil(t, item.AssignedToID)

	f.publisher.AssertEventPublished(t, messaging.EventItemCreated)
	f.mockDB.ExpectationsWereMet(t)
}

func TestCreate_NonStaffWithoutDepartmentsLeavesItemUnassigned(t *testing.T) {
	f := newFixture(t)
	defer f.mockDB.Close()

	act := memberActor(11, "bob")

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectQuery("INSERT INTO items").
		WithArgs("Gadget", "", 1, int64(500), int64(11), nil, nil).
		WillReturnRows(testutil.MockRows("id", "created_at", "updated_at").
			AddRow(int64(2), time.Now(), time.Now()))
	f.mockDB.ExpectQuery("INSERT INTO audit_log").
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(int64(2), time.Now()))
	f.mockDB.ExpectCommit()

	item, err := f.svc.Create(context.Background(), act, &service.ItemRequest{
		Name:       "Gadget",
		Quantity:   1,
		PriceCents: 500,
	})
	require.NoError(t, err)

	assert.Nil(t, item.DepartmentID)
	assert.Nil(t, item.AssignedToID)
	f.mockDB.ExpectationsWereMet(t)
}

func TestCreate_StaffKeepsRequestedAssignment(t *testing.T) {
	f := newFixture(t)
	defer f.mockDB.Close()

	act := staffActor(1, "admin")

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectQuery("INSERT INTO items").
		WithArgs("Scanner", "handheld", 3, int64(25000), int64(1), int64(7), int64(12)).
		WillReturnRows(testutil.MockRows("id", "created_at", "updated_at").
			AddRow(int64(3), time.Now(), time.Now()))
	f.mockDB.ExpectQuery("INSERT INTO audit_log").
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(int64(3), time.Now()))
	f.mockDB.ExpectCommit()

	item, err := f.svc.Create(context.Background(), act, &service.ItemRequest{
		Name:         "Scanner",
		Description:  "handheld",
		Quantity:     3,
		PriceCents:   25000,
		DepartmentID: ptr(7),
		AssignedToID: ptr(12),
	})
	require.NoError(t, err)

	require.NotNil(t, item.DepartmentID)
	assert.Equal(t, int64(7), *item.DepartmentID)
	require.NotNil(t, item.AssignedToID)
	assert.Equal(t, int64(12), *item.AssignedToID)
	f.mockDB.ExpectationsWereMet(t)
}

func TestCreate_GuestIsRejected(t *testing.T) {
	f := newFixture(t)
	defer f.mockDB.Close()

	_, err := f.svc.Create(context.Background(), nil, &service.ItemRequest{Name: "Widget"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	f.publisher.AssertNoEventsPublished(t)
	f.mockDB.ExpectationsWereMet(t)
}

func TestList_MemberGetsVisibilityUnion(t *testing.T) {
	f := newFixture(t)
	defer f.mockDB.Close()

	act := memberActor(10, "alice")

	f.mockDB.ExpectQuery("SELECT DISTINCT i.id, i.name").
		WithArgs(int64(10)).
		WillReturnRows(testutil.MockRows("id", "name", "description", "quantity", "price_cents",
			"owner_id", "department_id", "assigned_to_id", "created_at", "updated_at").
			AddRow(int64(1), "Widget", "", 5, int64(1999), int64(10), nil, nil, time.Now(), time.Now()).
			AddRow(int64(4), "Shared", "", 2, int64(100), int64(3), int64(2), nil, time.Now(), time.Now()))

	items, err := f.svc.List(context.Background(), act)
	require.NoError(t, err)
	require.Len(t, items, 2)
	f.mockDB.ExpectationsWereMet(t)
}

func TestList_StaffSeesEverything(t *testing.T) {
	f := newFixture(t)
	defer f.mockDB.Close()

	f.mockDB.ExpectQuery("FROM items").
		WillReturnRows(testutil.MockRows("id", "name", "description", "quantity", "price_cents",
			"owner_id", "department_id", "assigned_to_id", "created_at", "updated_at").
			AddRow(int64(1), "Widget", "", 5, int64(1999), int64(10), nil, nil, time.Now(), time.Now()))

	items, err := f.svc.List(context.Background(), staffActor(1, "admin"))
	require.NoError(t, err)
	require.Len(t, items, 1)
	f.mockDB.ExpectationsWereMet(t)
}

func TestUpdate_UnrelatedMemberIsDeniedWithoutAuditEntry(t *testing.T) {
	f := newFixture(t)
	defer f.mockDB.Close()

	act := memberActor(20, "mallory")

	f.mockDB.ExpectQuery("SELECT id, name, description").
		WithArgs(int64(1)).
		WillReturnRows(testutil.MockRows("id", "name", "description", "quantity", "price_cents",
			"owner_id", "department_id", "assigned_to_id", "created_at", "updated_at").
			AddRow(int64(1), "Widget", "", 5, int64(1999), int64(10), nil, nil, time.Now(), time.Now()))

	_, err := f.svc.Update(context.Background(), act, 1, &service.ItemRequest{Name: "Stolen"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	// No transaction, no audit write, no event.
	f.publisher.AssertNoEventsPublished(t)
	f.mockDB.ExpectationsWereMet(t)
}

func TestUpdate_AssigneeMayUpdateButNotReassign(t *testing.T) {
	f := newFixture(t)
	defer f.mockDB.Close()

	act := memberActor(12, "carol")

	f.mockDB.ExpectQuery("SELECT id, name, description").
		WithArgs(int64(5)).
		WillReturnRows(testutil.MockRows("id", "name", "description", "quantity", "price_cents",
			"owner_id", "department_id", "assigned_to_id", "created_at", "updated_at").
			AddRow(int64(5), "Printer", "", 1, int64(9000), int64(3), int64(4), int64(12), time.Now(), time.Now()))

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectQuery("UPDATE items").
		WithArgs("Printer", "out of toner", 1, int64(9000), int64(4), int64(12), int64(5)).
		WillReturnRows(testutil.MockRows("updated_at").AddRow(time.Now()))
	f.mockDB.ExpectQuery("INSERT INTO audit_log").
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(int64(9), time.Now()))
	f.mockDB.ExpectCommit()

	item, err := f.svc.Update(context.Background(), act, 5, &service.ItemRequest{
		Name:         "Printer",
		Description:  "out of toner",
		Quantity:     1,
		PriceCents:   9000,
		DepartmentID: ptr(99),
		AssignedToID: ptr(99),
	})
	require.NoError(t, err)

	// The requested reassignment is ignored for non-staff callers.
	require.NotNil(t, item.DepartmentID)
	assert.Equal(t, int64(4), *item.DepartmentID)
	require.NotNil(t, item.AssignedToID)
	assert.Equal(t, int64(12), *item.AssignedToID)

	f.publisher.AssertEventPublished(t, messaging.EventItemUpdated)
	f.mockDB.ExpectationsWereMet(t)
}

func TestDelete_AssigneeCannotDelete(t *testing.T) {
	f := newFixture(t)
	defer f.mockDB.Close()

	act := memberActor(12, "carol")

	f.mockDB.ExpectQuery("SELECT id, name, description").
		WithArgs(int64(5)).
		WillReturnRows(testutil.MockRows("id", "name", "description", "quantity", "price_cents",
			"owner_id", "department_id", "assigned_to_id", "created_at", "updated_at").
			AddRow(int64(5), "Printer", "", 1, int64(9000), int64(3), nil, int64(12), time.Now(), time.Now()))

	err := f.svc.Delete(context.Background(), act, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrForbidden))

	f.publisher.AssertNoEventsPublished(t)
	f.mockDB.ExpectationsWereMet(t)
}

func TestDelete_OwnerDeletesAndAudits(t *testing.T) {
	f := newFixture(t)
	defer f.mockDB.Close()

	act := memberActor(10, "alice")

	f.mockDB.ExpectQuery("SELECT id, name, description").
		WithArgs(int64(1)).
		WillReturnRows(testutil.MockRows("id", "name", "description", "quantity", "price_cents",
			"owner_id", "department_id", "assigned_to_id", "created_at", "updated_at").
			AddRow(int64(1), "Widget", "", 5, int64(1999), int64(10), nil, nil, time.Now(), time.Now()))

	f.mockDB.ExpectBegin()
	f.mockDB.ExpectExec("DELETE FROM items").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mockDB.ExpectQuery("INSERT INTO audit_log").
		WillReturnRows(testutil.MockRows("id", "created_at").AddRow(int64(10), time.Now()))
	f.mockDB.ExpectCommit()

	require.NoError(t, f.svc.Delete(context.Background(), act, 1))

	f.publisher.AssertEventPublished(t, messaging.EventItemDeleted)
	f.mockDB.ExpectationsWereMet(t)
}

func TestGet_NotFoundPassesThrough(t *testing.T) {
	f := newFixture(t)
	defer f.mockDB.Close()

	f.mockDB.ExpectQuery("SELECT id, name, description").
		WithArgs(int64(404)).
		WillReturnRows(testutil.MockRows("id", "name", "description", "quantity", "price_cents",
			"owner_id", "department_id", "assigned_to_id", "created_at", "updated_at"))

	_, err := f.svc.Get(context.Background(), staffActor(1, "admin"), 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	f.mockDB.ExpectationsWereMet(t)
}

func TestItemRequestValidation_RejectsNegativeValues(t *testing.T) {
	tests := []struct {
		name string
		req  service.ItemRequest
	}{
		{"negative quantity", service.ItemRequest{Name: "Widget", Quantity: -1}},
		{"negative price", service.ItemRequest{Name: "Widget", PriceCents: -100}},
		{"missing name", service.ItemRequest{Quantity: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := httputil.Validate(&tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))
		})
	}
}
