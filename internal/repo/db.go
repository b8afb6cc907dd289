package repo

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	login TEXT UNIQUE NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS designs (
	id SERIAL PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name TEXT NOT NULL DEFAULT '',
	body JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS analyses (
	design_id INTEGER PRIMARY KEY REFERENCES designs(id) ON DELETE CASCADE,
	version BIGINT NOT NULL,
	status TEXT NOT NULL,
	passing BOOLEAN NOT NULL,
	member_ids BIGINT[] NOT NULL,
	compression TEXT[] NOT NULL,
	tension TEXT[] NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// ConnString applies the sslmode default to a connection string.
func ConnString(connStr string) string {
	if connStr == "" {
		connStr = "user=postgres dbname=postgres password=password sslmode=disable"
	}
	if !strings.Contains(connStr, "sslmode=") {
		if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
			sep := "?"
			if strings.Contains(connStr, "?") {
				sep = "&"
			}
			connStr = connStr + sep + "sslmode=require"
		} else {
			connStr = connStr + " sslmode=require"
		}
	}
	return connStr
}

// InitDB opens the database, checks it answers and creates missing tables.
func InitDB(ctx context.Context, connStr string, maxOpen int) (*sql.DB, error) {
	db, err := sql.Open("postgres", ConnString(connStr))
	if err != nil {
		return nil, err
	}
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err = db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
