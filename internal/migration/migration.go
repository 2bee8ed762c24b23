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
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Result describes one migration run. Version is 0 when the schema is
// managed by AutoMigrate.
type Result struct {
	Strategy string
	From     uint
	To       uint
}

func (r Result) Changed() bool {
	return r.From != r.To
}

// RunMigrations applies the embedded PostgreSQL migrations: the schema, the
// one-open-bill-per-table index and the trigger that feeds LISTEN/NOTIFY.
func RunMigrations(db *sql.DB) (Result, error) {
	res := Result{Strategy: "migrate"}
	if db == nil {
		return res, errors.New("migration database handle is required")
	}

	migrator, err := newMigrator(db)
	if err != nil {
		return res, err
	}
	// migrator.Close would close the shared *sql.DB.

	res.From, err = currentVersion(migrator)
	if err != nil {
		return res, err
	}
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return res, fmt.Errorf("apply migrations: %w", err)
	}
	res.To, err = currentVersion(migrator)
	return res, err
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "menuya_schema_migrations"})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}

func currentVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return version, fmt.Errorf("schema version %d is dirty; fix it by hand and force the version", version)
	}
	return version, nil
}
