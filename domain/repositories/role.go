package repositories

import (
	"context"
	"errors"

	"github.com/satriahrh/rolecall/domain/entities"
)

// ErrRoleNotFound is returned when no role matches the requested id
var ErrRoleNotFound = errors.New("role not found")

// RoleRepository defines read access to persisted roles
type RoleRepository interface {
	List(ctx context.Context) ([]*entities.Role, error)
	GetByID(ctx context.Context, id int64) (*entities.Role, error)
}
