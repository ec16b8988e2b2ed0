package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/satriahrh/rolecall/domain/entities"
	"github.com/satriahrh/rolecall/domain/repositories"
)

const roleColumns = `id, name, system_prompt, voice_model, features`

// RoleRepository implements repositories.RoleRepository on the roles table
type RoleRepository struct {
	pool *pgxpool.Pool
}

var _ repositories.RoleRepository = (*RoleRepository)(nil)

// NewRoleRepository creates a new PostgreSQL role repository
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// List implements repositories.RoleRepository
func (r *RoleRepository) List(ctx context.Context) ([]*entities.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	roles, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[entities.Role])
	if err != nil {
		return nil, fmt.Errorf("failed to scan roles: %w", err)
	}
	return roles, nil
}

// GetByID implements repositories.RoleRepository
func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*entities.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	role, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[entities.Role])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan role: %w", err)
	}
	return role, nil
}
