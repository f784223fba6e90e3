// Package database wraps a Postgres connection, adapted from the upstream
// runner's database package: same sql.Open/Ping/Exec call shape, now
// owning the alerts archive table instead of the scenarios table.
package database

import (
	"database/sql"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Database represents the database connection and operations.
type Database struct {
	DB *sql.DB
}

// New opens and pings a Postgres connection at dsn.
func New(dsn string) (*Database, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	return &Database{DB: db}, nil
}

// Init creates the required tables if they don't exist.
func (d *Database) Init() error {
	createTables := `
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL,
		camera_name TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		snapshot_path TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := d.DB.Exec(createTables)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.DB.Close()
}
