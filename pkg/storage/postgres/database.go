package postgres

import (
	"database/sql"
	"fmt"

	"resxwatch/config"

	"github.com/lib/pq"
)

// CreateDatabase connects to the postgres server and creates the history
// database if it doesn't exist.
func CreateDatabase(cfg config.PostgresConfig) error {
	// Connect to the maintenance 'postgres' DB
	db, err := sql.Open("postgres", cfg.AdminDSN())
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer db.Close()

	// Check if database exists
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1);`
	if err := db.QueryRow(query, cfg.DBName).Scan(&exists); err != nil {
		return fmt.Errorf("check db exists failed: %w", err)
	}

	if exists {
		return nil // DB already exists
	}

	if _, err := db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(cfg.DBName)); err != nil {
		return fmt.Errorf("create db failed: %w", err)
	}

	return nil
}
