// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Store tests run against a real PostgreSQL and skip when none is
// reachable. Rows are keyed by random slugs and emails so packages can
// share one database.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"marketsite/internal/database"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB connects with a small pool and migrates to the latest schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := "postgres://" + envOr("POSTGRES_USER", "marketsite") + ":" + envOr("POSTGRES_PASSWORD", "changeme") +
		"@" + envOr("POSTGRES_HOST", "localhost") + ":" + envOr("POSTGRES_PORT", "5432") +
		"/" + envOr("POSTGRES_DB", "marketsite") + "?sslmode=disable"

	db, err := database.Connect(t.Context(), dsn, database.PoolOptions{MaxOpen: 4})
	if err != nil {
		t.Skipf("skipping integration test: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := database.Migrate(t.Context(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// deleteAfter removes the rows whose column matches one of values once the
// test ends. Table and column are test constants, never user input.
func deleteAfter(t *testing.T, db *sql.DB, table, column string, values ...any) {
	t.Helper()
	t.Cleanup(func() {
		for _, v := range values {
			if _, err := db.ExecContext(context.Background(), "DELETE FROM "+table+" WHERE "+column+" = $1", v); err != nil {
				t.Logf("cleanup %s.%s=%v: %v", table, column, v, err)
			}
		}
	})
}
