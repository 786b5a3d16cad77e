package store

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrate applies every pending up migration in files (*.sql at its root) and
// returns the resulting schema version. A dirty schema is an error: a previous
// run stopped half way and needs manual repair.
//
// Migrate does not close driver. Closing a golang-migrate driver closes the
// *sql.DB behind it, which the caller may still be using.
func Migrate(files fs.FS, dbName string, driver database.Driver) (uint, error) {
	source, err := iofs.New(files, ".")
	if err != nil {
		return 0, fmt.Errorf("migrations source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, driver)
	if err != nil {
		_ = source.Close()
		return 0, fmt.Errorf("migrate %s: %w", dbName, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate %s up: %w", dbName, err)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("migrate %s version: %w", dbName, err)
	}
	if dirty {
		return version, fmt.Errorf("migrate %s: schema version %d is dirty", dbName, version)
	}
	return version, nil
}
