// Package dbtest opens a migrated Postgres for repository tests. Tests are skipped when
// DATABASE_URL is not set.
package dbtest

import (
	"context"
	"os"
	"testing"

	"visitor_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type databaseURL string

func (u databaseURL) GetDatabaseURL() string { return string(u) }

// Open migrates the database behind DATABASE_URL and returns a pool closed at test end.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	raw := os.Getenv("DATABASE_URL")
	if raw == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres test")
	}
	cfg := databaseURL(raw)
	ctx := context.Background()

	if err := db.RunMigrations(ctx, cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// Tenant inserts a tenant and deletes it, with everything that cascades from it, at test end.
func Tenant(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	exec(t, pool, `INSERT INTO tenants (id, name, admin_account_id) VALUES ($1, 'Test tenant', $2)`, id, uuid.New())
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM tenants WHERE id = $1`, id)
	})
	return id
}

// Employee inserts an active employee of tenantID.
func Employee(t *testing.T, pool *pgxpool.Pool, tenantID uuid.UUID, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	exec(t, pool, `INSERT INTO employees (id, tenant_id, name, email) VALUES ($1, $2, $3, $4)`,
		id, tenantID, name, id.String()+"@example.com")
	return id
}

// Visitor inserts a visitor of tenantID.
func Visitor(t *testing.T, pool *pgxpool.Pool, tenantID uuid.UUID, name, phone string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	exec(t, pool, `INSERT INTO visitors (id, tenant_id, name, phone) VALUES ($1, $2, $3, $4)`, id, tenantID, name, phone)
	return id
}

func exec(t *testing.T, pool *pgxpool.Pool, sql string, args ...any) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), sql, args...); err != nil {
		t.Fatalf("seed: %v", err)
	}
}
