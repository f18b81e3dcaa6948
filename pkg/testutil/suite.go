package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stockroom/stockroom-backend/pkg/database"
	"github.com/stockroom/stockroom-backend/pkg/logger"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	globalDB        *sqlx.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	RawDB     *sqlx.DB
	DB        *database.DB
	Fixtures  *FixtureFactory
	Logger    *logger.Logger
}

// NewIntegrationSuite creates a new integration test suite and applies the
// migrations found in migrationsDir.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//
//	    var err error
//	    suite, err = testutil.NewIntegrationSuite(ctx, "../../../migrations")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    code := m.Run()
//	    testutil.TerminateContainer(ctx)
//	    os.Exit(code)
//	}
func NewIntegrationSuite(ctx context.Context, migrationsDir string) (*IntegrationSuite, error) {
	container, db, err := getOrCreateContainer(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.New("test", "test")
	wrappedDB, err := database.NewWithDSN(container.DSN, log)
	if err != nil {
		return nil, err
	}

	if err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		return nil, err
	}

	return &IntegrationSuite{
		Container: container,
		RawDB:     db,
		DB:        wrappedDB,
		Fixtures:  NewFixtureFactory(),
		Logger:    log,
	}, nil
}

// getOrCreateContainer returns the shared test container
func getOrCreateContainer(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.Connect(ctx)
	})

	return globalContainer, globalDB, containerErr
}

// Reset truncates all application tables so each test starts clean
func (s *IntegrationSuite) Reset(t *testing.T, ctx context.Context) {
	t.Helper()

	_, err := s.RawDB.ExecContext(ctx, `
		TRUNCATE audit_log, items, profile_departments, user_profiles, departments, users
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("failed to reset test database: %v", err)
	}
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}

// UnitTestSuite provides a base for unit tests with mocked dependencies
type UnitTestSuite struct {
	MockDB   *MockDB
	Fixtures *FixtureFactory
	t        *testing.T
}

// NewUnitTestSuite creates a new unit test suite
func NewUnitTestSuite(t *testing.T) *UnitTestSuite {
	return &UnitTestSuite{
		MockDB:   NewMockDB(t),
		Fixtures: NewFixtureFactory(),
		t:        t,
	}
}

// Cleanup verifies expectations and cleans up
func (s *UnitTestSuite) Cleanup() {
	s.MockDB.ExpectationsWereMet(s.t)
	s.MockDB.Close()
}
