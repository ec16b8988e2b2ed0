package adapters

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/satriahrh/rolecall/domain/entities"
	"github.com/satriahrh/rolecall/domain/repositories"
)

// DefaultRoles are the personas every fresh role store starts with
func DefaultRoles() []*entities.Role {
	return []*entities.Role{
		{
			ID:           1,
			Name:         "Socrates",
			SystemPrompt: "You are Socrates, always ask questions and reason logically.",
			VoiceModel:   "en_US-libritts-high.onnx",
			Features:     []string{"philosophy", "questioning"},
		},
		{
			ID:           2,
			Name:         "Young Wizard",
			SystemPrompt: "You are a curious young wizard, adventurous and optimistic.",
			VoiceModel:   "en_US-libritts-high.onnx",
			Features:     []string{"magic", "adventure"},
		},
	}
}

// MemoryRoleRepository is an in-memory implementation of RoleRepository
type MemoryRoleRepository struct {
	mu    sync.RWMutex
	roles map[int64]*entities.Role
}

var _ repositories.RoleRepository = (*MemoryRoleRepository)(nil)

// NewMemoryRoleRepository creates a role repository holding the given roles
func NewMemoryRoleRepository(roles ...*entities.Role) (*MemoryRoleRepository, error) {
	m := &MemoryRoleRepository{roles: make(map[int64]*entities.Role)}
	for _, role := range roles {
		if err := m.Save(role); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Save inserts or replaces a role
func (m *MemoryRoleRepository) Save(role *entities.Role) error {
	if role == nil {
		return errors.New("role cannot be nil")
	}
	if role.ID <= 0 {
		return errors.New("role ID must be positive")
	}
	if err := role.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	roleCopy := *role
	roleCopy.Features = append([]string(nil), role.Features...)
	m.roles[role.ID] = &roleCopy
	return nil
}

// List implements RoleRepository interface
func (m *MemoryRoleRepository) List(ctx context.Context) ([]*entities.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	roles := make([]*entities.Role, 0, len(m.roles))
	for _, role := range m.roles {
		roleCopy := *role
		roles = append(roles, &roleCopy)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

// GetByID implements RoleRepository interface
func (m *MemoryRoleRepository) GetByID(ctx context.Context, id int64) (*entities.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	role, exists := m.roles[id]
	if !exists {
		return nil, repositories.ErrRoleNotFound
	}

	// Return a copy to prevent external modifications
	roleCopy := *role
	return &roleCopy, nil
}
