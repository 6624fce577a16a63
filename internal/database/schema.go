package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

var schemaStatements = []struct {
	name  string
	query string
}{
	{
		name: "users table",
		query: `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(255) UNIQUE NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		image VARCHAR(500) NOT NULL,
		places UUID[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`,
	},
	{
		name: "places table",
		query: `
	CREATE TABLE IF NOT EXISTS places (
		id UUID PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		address VARCHAR(500) NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		image VARCHAR(500) NOT NULL,
		creator_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`,
	},
	{
		name:  "places creator index",
		query: `CREATE INDEX IF NOT EXISTS places_creator_created_idx ON places(creator_id, created_at)`,
	},
}

// CreateTables creates the users and places tables and their indexes. Every
// statement is idempotent so it runs on each start.
func CreateTables(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt.query); err != nil {
			return fmt.Errorf("create %s: %w", stmt.name, err)
		}
		slog.Info("schema ready", "object", stmt.name)
	}
	return nil
}
