package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockroom/stockroom-backend/internal/inventory/repository"
	"github.com/stockroom/stockroom-backend/pkg/errors"
	"github.com/stockroom/stockroom-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx, "../../../migrations")
	if err != nil {
		log.Fatalf("failed to start integration suite: %v", err)
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func insertUser(t *testing.T, ctx context.Context, username string, isStaff bool) int64 {
	t.Helper()

	u := suite.Fixtures.User(testutil.WithUsername(username))
	var id int64
	err := suite.RawDB.QueryRowxContext(ctx, `
		INSERT INTO users (username, email, password_hash, is_staff, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id
	`, u.Username, u.Email, u.PasswordHash, isStaff).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertDepartment(t *testing.T, ctx context.Context, name string) int64 {
	t.Helper()

	var id int64
	err := suite.RawDB.QueryRowxContext(ctx,
		`INSERT INTO departments (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	require.NoError(t, err)
	return id
}

func addMembership(t *testing.T, ctx context.Context, userID, deptID int64) {
	t.Helper()

	var profileID int64
	err := suite.RawDB.QueryRowxContext(ctx, `
		INSERT INTO user_profiles (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id
	`, userID).Scan(&profileID)
	require.NoError(t, err)

	_, err = suite.RawDB.ExecContext(ctx,
		`INSERT INTO profile_departments (profile_id, department_id) VALUES ($1, $2)`,
		profileID, deptID)
	require.NoError(t, err)
}

func TestListVisibleTo_ReturnsOwnerAssigneeAndDepartmentUnion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.Reset(t, ctx)

	alice := insertUser(t, ctx, "alice", false)
	bob := insertUser(t, ctx, "bob", false)

	warehouse := insertDepartment(t, ctx, "Warehouse")
	logistics := insertDepartment(t, ctx, "Logistics")
	addMembership(t, ctx, alice, warehouse)

	repo := repository.NewItemRepository(suite.DB)

	owned := &repository.Item{Name: "Owned", OwnerID: alice, Quantity: 1}
	require.NoError(t, repo.Create(ctx, owned))

	assigned := &repository.Item{Name: "Assigned", OwnerID: bob, AssignedToID: &alice, Quantity: 1}
	require.NoError(t, repo.Create(ctx, assigned))

	departmental := &repository.Item{Name: "Departmental", OwnerID: bob, DepartmentID: &warehouse, Quantity: 1}
	require.NoError(t, repo.Create(ctx, departmental))

	hidden := &repository.Item{Name: "Hidden", OwnerID: bob, DepartmentID: &logistics, Quantity: 1}
	require.NoError(t, repo.Create(ctx, hidden))

	visible, err := repo.ListVisibleTo(ctx, alice)
	require.NoError(t, err)

	names := make([]string, 0, len(visible))
	for _, item := range visible {
		names = append(names, item.Name)
	}
	assert.ElementsMatch(t, []string{"Owned", "Assigned", "Departmental"}, names)
}

func TestListVisibleTo_CollapsesMultipleMatchesToOneRow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.Reset(t, ctx)

	alice := insertUser(t, ctx, "alice", false)
	warehouse := insertDepartment(t, ctx, "Warehouse")
	addMembership(t, ctx, alice, warehouse)

	repo := repository.NewItemRepository(suite.DB)

	// Owner, assignee and department member all at once.
	item := &repository.Item{Name: "Everything", OwnerID: alice, AssignedToID: &alice, DepartmentID: &warehouse, Quantity: 1}
	require.NoError(t, repo.Create(ctx, item))

	visible, err := repo.ListVisibleTo(ctx, alice)
	require.NoError(t, err)
	require.Len(t, visible, 1)
}

func TestItemLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.Reset(t, ctx)

	alice := insertUser(t, ctx, "alice", false)
	repo := repository.NewItemRepository(suite.DB)

	item := &repository.Item{Name: "Widget", Description: "blue", Quantity: 5, PriceCents: 1999, OwnerID: alice}
	require.NoError(t, repo.Create(ctx, item))
	require.NotZero(t, item.ID)

	item.Quantity = 7
	require.NoError(t, repo.Update(ctx, item))

	got, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Quantity)
	assert.Equal(t, int64(1999), got.PriceCents)

	require.NoError(t, repo.Delete(ctx, item.ID))

	_, err = repo.GetByID(ctx, item.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDatabaseRejectsNegativeQuantity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.Reset(t, ctx)

	alice := insertUser(t, ctx, "alice", false)
	repo := repository.NewItemRepository(suite.DB)

	item := &repository.Item{Name: "Broken", Quantity: -1, OwnerID: alice}
	require.Error(t, repo.Create(ctx, item))
}
