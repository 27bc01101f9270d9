// Command migrate manages the Sooicy order schema.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"sooicy-orders/internal/config"
	"sooicy-orders/internal/database/migrations"
	"sooicy-orders/internal/logger"
	"sooicy-orders/internal/models"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

var (
	cfg           *config.Config
	migrationsDir string
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the Sooicy order schema",
	Long: `migrate drives the SQL files in the migrations directory against
POSTGRES_DSN. Version 1 is the schema, version 2 the sample menu, locations
and riders.`,
	SilenceUsage: true,
}

// withRunner opens the database and hands a runner to fn.
func withRunner(fn func(ctx context.Context, db *bun.DB, runner *migrations.Runner) error) error {
	log, err := logger.NewLogger(logger.Options{Dir: cfg.Log.Dir, Service: "sooicy-migrate", Level: cfg.Log.Level})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	ctx := context.Background()
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	runner := migrations.NewRunner(db, migrations.MigrateOptions{MigrationsDir: migrationsDir, SeedData: true}, log)
	defer runner.Close()

	if err := fn(ctx, db, runner); err != nil {
		return err
	}
	log.Info("MIGRATE", "Done.")
	return nil
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply schema and seed migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(_ context.Context, _ *bun.DB, r *migrations.Runner) error {
			return r.MigrateUp()
		})
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Apply schema migrations only",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(_ context.Context, _ *bun.DB, r *migrations.Runner) error {
			return r.MigrateTo(migrations.SchemaVersion)
		})
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll every migration back",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(_ context.Context, _ *bun.DB, r *migrations.Runner) error {
			return r.MigrateDown()
		})
	},
}

var toCmd = &cobra.Command{
	Use:   "to VERSION",
	Short: "Move up or down to VERSION",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("version must be a non-negative integer, got %q", args[0])
		}
		return withRunner(func(_ context.Context, _ *bun.DB, r *migrations.Runner) error {
			return r.MigrateTo(uint(version))
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(_ context.Context, _ *bun.DB, r *migrations.Runner) error {
			version, dirty, err := r.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every table, then apply schema and seed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(func(ctx context.Context, db *bun.DB, r *migrations.Runner) error {
			if err := dropTables(ctx, db); err != nil {
				return err
			}
			return r.MigrateUp()
		})
	},
}

// dropTables removes the model tables in reverse dependency order, then the
// migrate bookkeeping table so the next run starts from zero.
func dropTables(ctx context.Context, db *bun.DB) error {
	for i := len(models.Tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(models.Tables[i]).IfExists().Cascade().Exec(ctx); err != nil {
			return fmt.Errorf("drop %T: %w", models.Tables[i], err)
		}
	}
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS schema_migrations"); err != nil {
		return fmt.Errorf("drop schema_migrations: %w", err)
	}
	return nil
}

func init() {
	_ = godotenv.Load()
	cfg = config.Load()

	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", cfg.Database.MigrationsDir, "migrations directory")
	rootCmd.AddCommand(upCmd, schemaCmd, downCmd, toCmd, versionCmd, resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
