package postgres

import (
	"database/sql"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// migrator is the part of *migrate.Migrate RunMigrations drives.
type migrator interface {
	Up() error
	Close() (source error, database error)
}

// RunMigrations applies pending migrations from dir over a dedicated connection.
// Closing the migrator closes that connection, so the application pool is never
// handed to it.
func RunMigrations(dsn, dir string, logger *logrus.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return errors.Wrap(err, "migrate open")
	}
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		_ = db.Close()
		return errors.Wrap(err, "migrate driver")
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		_ = driver.Close()
		return errors.Wrap(err, "migrate source")
	}
	logger.WithField("dir", dir).Info("running migrations")
	return migrateUp(m, logger)
}

func migrateUp(m migrator, logger *logrus.Logger) (err error) {
	defer func() {
		srcErr, dbErr := m.Close()
		if err == nil && srcErr != nil {
			err = errors.Wrap(srcErr, "migrate close source")
		}
		if err == nil && dbErr != nil {
			err = errors.Wrap(dbErr, "migrate close database")
		}
	}()
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no migrations to run")
			return nil
		}
		return errors.Wrap(err, "migrate up")
	}
	return nil
}
