// Package backend opens the configured reading store and brings its schema up to date.
package backend

import (
	"database/sql"
	"fmt"

	corecfg "github.com/sensorwatch-lab/sensorwatch/internal/core/config"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage/postgres"
	"github.com/sensorwatch-lab/sensorwatch/internal/core/storage/sqlite"
	"github.com/sensorwatch-lab/sensorwatch/internal/migrations"
)

// Store is a reading store that owns its database handle.
type Store interface {
	storage.ReadingStore
	Close() error
}

// Open connects to the database named by c, runs migrations and prepares
// the adapter. Closing the returned store closes the database.
func Open(c corecfg.DatabaseConfig) (Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch c.Type {
	case migrations.DriverPostgres:
		db, err = postgres.Open(c.DSN, c.MaxOpenConns, c.MaxIdleConns)
	case migrations.DriverSQLite:
		db, err = sqlite.Open(c.DSN, c.MaxOpenConns)
	default:
		return nil, fmt.Errorf("unsupported database type %q", c.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := migrations.RunMigrations(db, c.Type, c.AutoMigrate); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	if c.Type == migrations.DriverPostgres {
		a, err := postgres.NewAdapter(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return a, nil
	}

	a, err := sqlite.NewAdapter(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}
