package commands

import (
	"database/sql"

	"github.com/iwtech/courier/config"
	"github.com/iwtech/courier/db"
	"github.com/iwtech/courier/errors"
	"github.com/iwtech/courier/logger"
)

// openDatabase opens and migrates the database at the configured path.
// An explicit dbPath overrides configuration.
func openDatabase(cfg *config.Config, dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		dbPath = cfg.GetDatabasePath()
	}

	database, err := db.Open(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}

	if err := db.Migrate(database, logger.Logger); err != nil {
		database.Close()
		return nil, errors.Wrapf(err, "failed to run migrations on %s", dbPath)
	}

	return database, nil
}
