// Package repotest connects integration tests to the Postgres named by TEST_DB_DSN.
package repotest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"vsbridge/internal/migrate"
)

// Pool returns a migrated, emptied database or skips the test when TEST_DB_DSN is unset.
func Pool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE orders, cart_lines, cart_addresses, carts, tokens, customers, products, stores RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	if _, err := pool.Exec(ctx, `ALTER SEQUENCE order_reference_seq RESTART WITH 1`); err != nil {
		t.Fatalf("reset sequence: %v", err)
	}
	return pool
}

// Store inserts a store row and returns its id.
func Store(ctx context.Context, t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `INSERT INTO stores (code, name, base_currency) VALUES ('default', 'Default', 'USD') RETURNING id::text`).Scan(&id)
	if err != nil {
		t.Fatalf("insert store: %v", err)
	}
	return id
}
