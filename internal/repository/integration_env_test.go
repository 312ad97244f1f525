//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/phorium/phorium/internal/testutil"
)

// newTestRepository connects to DATABASE_URL, holds the DB test lock and
// resets the schema.
func newTestRepository(t *testing.T) (context.Context, *Repository) {
	t.Helper()

	databaseURL := testutil.RequireEnv(t, "DATABASE_URL")
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	repo, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	t.Cleanup(func() { _ = unlock() })

	if err := testutil.ResetSchema(ctx, databaseURL); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, repo
}
