package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockroom/stockroom-backend/internal/directory/repository"
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

func TestNotificationFlagLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.Reset(t, ctx)

	staff := insertUser(t, ctx, "admin", true)
	repo := repository.NewProfileRepository(suite.DB)

	// A staff user with no profile yet reads as having seen everything.
	seen, err := repo.HasSeenNewUsers(ctx, staff)
	require.NoError(t, err)
	assert.True(t, seen)

	// A member registration flags every staff profile, creating missing ones.
	require.NoError(t, repo.MarkAllStaffPending(ctx))

	seen, err = repo.HasSeenNewUsers(ctx, staff)
	require.NoError(t, err)
	assert.False(t, seen)

	// Viewing the user list clears the flag for that one admin.
	require.NoError(t, repo.MarkSeen(ctx, staff))

	seen, err = repo.HasSeenNewUsers(ctx, staff)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestMarkAllStaffPending_SkipsMembers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.Reset(t, ctx)

	staff := insertUser(t, ctx, "admin", true)
	member := insertUser(t, ctx, "alice", false)
	repo := repository.NewProfileRepository(suite.DB)

	_, err := repo.GetOrCreate(ctx, member)
	require.NoError(t, err)

	require.NoError(t, repo.MarkAllStaffPending(ctx))

	staffSeen, err := repo.HasSeenNewUsers(ctx, staff)
	require.NoError(t, err)
	assert.False(t, staffSeen)

	memberSeen, err := repo.HasSeenNewUsers(ctx, member)
	require.NoError(t, err)
	assert.True(t, memberSeen)
}

func TestReplaceDepartments_SetSemantics(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.Reset(t, ctx)

	alice := insertUser(t, ctx, "alice", false)

	depts := repository.NewDepartmentRepository(suite.DB)
	d1 := &repository.Department{Name: "Warehouse"}
	require.NoError(t, depts.Create(ctx, d1))
	d2 := &repository.Department{Name: "Logistics"}
	require.NoError(t, depts.Create(ctx, d2))
	d3 := &repository.Department{Name: "Returns"}
	require.NoError(t, depts.Create(ctx, d3))

	profiles := repository.NewProfileRepository(suite.DB)
	profile, err := profiles.GetOrCreate(ctx, alice)
	require.NoError(t, err)

	require.NoError(t, profiles.ReplaceDepartments(ctx, profile.ID, []int64{d1.ID, d2.ID}))

	ids, err := profiles.DepartmentIDs(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []int64{d1.ID, d2.ID}, ids)

	// Replacing drops memberships missing from the new set.
	require.NoError(t, profiles.ReplaceDepartments(ctx, profile.ID, []int64{d3.ID}))

	ids, err = profiles.DepartmentIDs(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []int64{d3.ID}, ids)
}

func TestDepartmentItemCountGuardsDeletes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	suite.Reset(t, ctx)

	alice := insertUser(t, ctx, "alice", false)

	depts := repository.NewDepartmentRepository(suite.DB)
	dept := &repository.Department{Name: "Warehouse"}
	require.NoError(t, depts.Create(ctx, dept))

	_, err := suite.RawDB.ExecContext(ctx, `
		INSERT INTO items (name, description, quantity, price_cents, owner_id, department_id)
		VALUES ('Widget', '', 1, 100, $1, $2)
	`, alice, dept.ID)
	require.NoError(t, err)

	count, err := depts.ItemCount(ctx, dept.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
