package db

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/banshee-data/arplayback/internal/monitoring"
)

// MigrateUp brings the catalog schema up to the newest migration in fsys.
// An already current schema is not an error.
func (db *DB) MigrateUp(fsys fs.FS) error {
	return db.withMigrator(fsys, func(m *migrate.Migrate) error {
		if err := ignoreNoChange(m.Up()); err != nil {
			return fmt.Errorf("schema upgrade: %w", err)
		}
		return nil
	})
}

// MigrateDown reverts one migration.
func (db *DB) MigrateDown(fsys fs.FS) error {
	return db.withMigrator(fsys, func(m *migrate.Migrate) error {
		if err := ignoreNoChange(m.Steps(-1)); err != nil {
			return fmt.Errorf("schema downgrade: %w", err)
		}
		return nil
	})
}

// MigrateVersion reports the applied schema version, 0 on a fresh file.
func (db *DB) MigrateVersion(fsys fs.FS) (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := db.withMigrator(fsys, func(m *migrate.Migrate) error {
		v, d, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			return nil
		case err != nil:
			return fmt.Errorf("schema version: %w", err)
		}
		version, dirty = v, d
		return nil
	})
	return version, dirty, err
}

// withMigrator runs fn against a migrator bound to the open connection. The
// migrator is never closed since that would close db.DB as well.
func (db *DB) withMigrator(fsys fs.FS, fn func(*migrate.Migrate) error) error {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	target, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("bind migration target: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", target)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	m.Log = migrationLog{}
	return fn(m)
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// migrationLog adapts monitoring.Logf to migrate.Logger.
type migrationLog struct{}

func (migrationLog) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (migrationLog) Verbose() bool { return false }
