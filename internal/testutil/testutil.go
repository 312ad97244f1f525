// Package testutil holds helpers for integration tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/phorium/phorium/internal/migrate"
	"github.com/phorium/phorium/internal/model"
	"github.com/phorium/phorium/migrations"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 740740

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema rolls back and reapplies every embedded migration.
func ResetSchema(ctx context.Context, databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := migrate.Rollback(ctx, db, migrations.FS); err != nil {
		return fmt.Errorf("rollback migrations: %w", err)
	}
	if err := migrate.Apply(ctx, db, migrations.FS); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// NewTestGeneration creates a succeeded text generation for userID.
func NewTestGeneration(t testing.TB, userID string) *model.Generation {
	t.Helper()
	return &model.Generation{
		ID:        UniqueID("gen"),
		UserID:    userID,
		Kind:      model.GenerationText,
		Prompt:    "Write copy for a ceramic mug",
		Output:    "Sip slowly.",
		Cost:      1,
		Status:    model.GenerationSucceeded,
		CreatedAt: time.Now().UTC(),
	}
}

// NewTestStoreConnection creates a connection with the write_products scope.
func NewTestStoreConnection(t testing.TB, userID string) *model.StoreConnection {
	t.Helper()
	now := time.Now().UTC()
	return &model.StoreConnection{
		ID:          UniqueID("conn"),
		UserID:      userID,
		ShopDomain:  "demo.myshopify.com",
		AccessToken: "shpat_test",
		Scopes:      []string{"read_products", "write_products"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
