package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	commissiondomain "github.com/smallbiznis/triviabees/internal/commission/domain"
	eligibilitydomain "github.com/smallbiznis/triviabees/internal/eligibility/domain"
	orderdomain "github.com/smallbiznis/triviabees/internal/order/domain"
	profiledomain "github.com/smallbiznis/triviabees/internal/profile/domain"
	referraldomain "github.com/smallbiznis/triviabees/internal/referral/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded Postgres schema.
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
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&profiledomain.Profile{},
		&referraldomain.Referral{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&commissiondomain.CommissionRecord{},
		&eligibilitydomain.MembershipPurchase{},
		&eligibilitydomain.DiamondPurchase{},
		&eligibilitydomain.AppSetting{},
	}
}

// AutoMigrate builds the schema from the gorm models. Used for the sqlite
// and mysql dialects where the embedded Postgres SQL does not apply.
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	return conn.AutoMigrate(Models()...)
}
