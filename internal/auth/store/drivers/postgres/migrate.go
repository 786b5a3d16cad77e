package postgres

import (
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/postgres/migrations"

	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// ApplyMigrations brings the schema up to date from the embedded migrations.
// The migrate driver needs database/sql, so it borrows a connection from the
// pool through pgx's stdlib adapter.
func (s *Store) ApplyMigrations() error {
	db := stdlib.OpenDBFromPool(s.pool)

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		_ = db.Close()
		return err
	}
	// Closes the borrowed *sql.DB; the pool itself stays open.
	defer func() { _ = driver.Close() }()

	_, err = store.Migrate(migrations.Migrations, "pgx5", driver)
	return err
}
