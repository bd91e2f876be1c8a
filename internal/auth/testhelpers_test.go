package auth

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestPostgres wraps a containerized store with cleanup
type TestPostgres struct {
	*PostgresStore
	container testcontainers.Container
	connStr   string
}

// SetupTestPostgres creates a new PostgreSQL container, connects and migrates
func SetupTestPostgres(t *testing.T) *TestPostgres {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	store, err := NewPostgresStore(connStr)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	tp := &TestPostgres{
		PostgresStore: store,
		container:     pgContainer,
		connStr:       connStr,
	}

	// Migrations live next to the module root
	_, filename, _, _ := runtime.Caller(0)
	migrationsPath := filepath.Join(filepath.Dir(filename), "..", "..", "db", "migrations")
	if err := store.Migrate(migrationsPath); err != nil {
		tp.Cleanup(t)
		t.Fatalf("failed to run migrations: %v", err)
	}

	return tp
}

// Cleanup closes the store and terminates the container
func (tp *TestPostgres) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if tp.PostgresStore != nil {
		tp.PostgresStore.Close()
	}
	if tp.container != nil {
		if err := tp.container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}
}

// TruncateAll truncates all tables for test isolation
func (tp *TestPostgres) TruncateAll(t *testing.T) {
	t.Helper()

	for _, table := range []string{"transactions", "users"} {
		if _, err := tp.conn.Exec("TRUNCATE TABLE " + table + " CASCADE"); err != nil {
			t.Fatalf("failed to truncate table %s: %v", table, err)
		}
	}
}
