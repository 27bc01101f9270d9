package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"sooicy-orders/internal/logger"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func TestInitializeMissingDir(t *testing.T) {
	runner := NewRunner(nil, MigrateOptions{MigrationsDir: "does-not-exist"}, logger.NewNopLogger())
	err := runner.Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist")

	_, _, err = runner.Version()
	assert.Error(t, err)
	assert.NoError(t, runner.Close())
}

func TestMigrationsIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "sooicy",
				"POSTGRES_PASSWORD": "sooicy",
				"POSTGRES_DB":       "sooicy",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Docker not available: %v", err)
	}
	defer container.Terminate(ctx)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://sooicy:sooicy@%s:%s/sooicy?sslmode=disable", host, port.Port())
	sqldb, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	log := logger.NewNopLogger()

	schema := NewRunner(db, MigrateOptions{MigrationsDir: "../../../migrations"}, log)
	require.NoError(t, schema.RunMigrations())
	version, dirty, err := schema.Version()
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
	assert.False(t, dirty)

	var riders int
	require.NoError(t, db.NewSelect().Table("riders").ColumnExpr("COUNT(*)").Scan(ctx, &riders))
	assert.Zero(t, riders, "schema-only run must not seed")

	seeded := NewRunner(db, MigrateOptions{MigrationsDir: "../../../migrations", SeedData: true}, log)
	require.NoError(t, seeded.RunMigrations())
	require.NoError(t, db.NewSelect().Table("riders").ColumnExpr("COUNT(*)").Scan(ctx, &riders))
	assert.Equal(t, 3, riders)

	// Rerunning is a no-op.
	require.NoError(t, seeded.RunMigrations())

	require.NoError(t, seeded.MigrateDown())
	version, _, err = seeded.Version()
	require.NoError(t, err)
	assert.Zero(t, version)

	// Close releases the shared *sql.DB as well, so it goes last.
	require.NoError(t, schema.Close())
}
