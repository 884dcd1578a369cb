package commands

import (
	"fmt"
	"os"

	"github.com/studydesk/api/internal/config"
	"github.com/studydesk/api/internal/database"
)

// openDB loads environment config and connects to Postgres. The returned
// cleanup closes the connection, warning on stderr if that fails.
func openDB() (*database.DB, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}
	return db, cleanup, nil
}
