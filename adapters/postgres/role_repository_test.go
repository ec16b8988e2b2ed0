package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/rolecall/domain/repositories"
)

// TestRoleRepository_Integration requires a PostgreSQL instance
// (skipped if POSTGRES_DSN is not set)
func TestRoleRepository_Integration(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping PostgreSQL integration test - POSTGRES_DSN not set")
	}

	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	pool, err := Connect(ctx, dsn, logger)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	if err := Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	// Migrations are idempotent
	if err := Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}

	repo := NewRoleRepository(pool)

	roles, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(roles) < 2 || roles[0].Name != "Socrates" {
		t.Fatalf("Expected seeded roles, got %+v", roles)
	}

	role, err := repo.GetByID(ctx, 2)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if role.Name != "Young Wizard" || len(role.Features) == 0 {
		t.Errorf("Unexpected role %+v", role)
	}

	if _, err := repo.GetByID(ctx, -1); !errors.Is(err, repositories.ErrRoleNotFound) {
		t.Errorf("Expected ErrRoleNotFound, got %v", err)
	}
}
