// Package migration applies the schema on startup so a fresh database is
// usable without manual steps.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	authdomain "github.com/smallbiznis/streamhub/internal/auth/domain"
	catalogdomain "github.com/smallbiznis/streamhub/internal/catalog/domain"
	entitlementdomain "github.com/smallbiznis/streamhub/internal/entitlement/domain"
	organizationdomain "github.com/smallbiznis/streamhub/internal/organization/domain"
	plandomain "github.com/smallbiznis/streamhub/internal/plan/domain"
	subscriptiondomain "github.com/smallbiznis/streamhub/internal/subscription/domain"
	taskdomain "github.com/smallbiznis/streamhub/internal/task/domain"
	userdomain "github.com/smallbiznis/streamhub/internal/user/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies every pending up migration against a Postgres handle.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// migrator.Close would close the shared *sql.DB.

	return nil
}

// Models lists every persisted model. SQLite databases are built from these
// instead of the Postgres SQL files.
func Models() []any {
	return []any{
		&authdomain.Account{},
		&authdomain.Session{},
		&organizationdomain.Organization{},
		&plandomain.SubscriptionPlan{},
		&userdomain.User{},
		&subscriptiondomain.UserSubscription{},
		&catalogdomain.Channel{},
		&catalogdomain.ContentItem{},
		&entitlementdomain.WatchHistory{},
		&taskdomain.Task{},
	}
}

// AutoMigrate creates the schema from Models.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(Models()...)
}
