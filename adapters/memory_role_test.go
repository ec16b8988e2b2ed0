package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/satriahrh/rolecall/domain/entities"
	"github.com/satriahrh/rolecall/domain/repositories"
)

func TestMemoryRoleRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := NewMemoryRoleRepository(DefaultRoles()...)
	if err != nil {
		t.Fatalf("Failed to seed repository: %v", err)
	}

	t.Run("List", func(t *testing.T) {
		roles, err := repo.List(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(roles) != 2 {
			t.Fatalf("Expected 2 roles, got %d", len(roles))
		}
		if roles[0].Name != "Socrates" || roles[1].Name != "Young Wizard" {
			t.Errorf("Unexpected order %s, %s", roles[0].Name, roles[1].Name)
		}
	})

	t.Run("GetByID", func(t *testing.T) {
		role, err := repo.GetByID(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if role.Name != "Socrates" || !role.IsEnglishVoice() {
			t.Errorf("Unexpected role %+v", role)
		}

		// Returned roles are copies
		role.Name = "changed"
		again, _ := repo.GetByID(ctx, 1)
		if again.Name != "Socrates" {
			t.Error("Repository role was modified through returned pointer")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 99)
		if !errors.Is(err, repositories.ErrRoleNotFound) {
			t.Errorf("Expected ErrRoleNotFound, got %v", err)
		}
	})

	t.Run("SaveValidates", func(t *testing.T) {
		if err := repo.Save(&entities.Role{ID: 3, Name: "Empty"}); err == nil {
			t.Error("Expected validation error")
		}
		if err := repo.Save(&entities.Role{Name: "No ID", SystemPrompt: "x"}); err == nil {
			t.Error("Expected error for missing ID")
		}
	})
}
