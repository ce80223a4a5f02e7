package parent

import (
	"context"
	"sync"
	"time"

	"roster/internal/directory/models"
	"roster/internal/directory/store"
)

// Memory is an in-memory repository for tests and dev wiring.
type Memory struct {
	mu   sync.RWMutex
	rows map[string]models.Parent
}

func NewMemory() *Memory {
	return &Memory{rows: make(map[string]models.Parent)}
}

func (m *Memory) Insert(_ context.Context, id string, cmd models.ParentCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; ok {
		return &store.Error{Code: store.CodeUniqueViolation, Fields: []string{"id"}}
	}
	if err := m.checkUnique(id, cmd.Username, cmd.Email); err != nil {
		return err
	}
	m.rows[id] = rowFromCommand(id, cmd, time.Now())
	return nil
}

func (m *Memory) Update(_ context.Context, id string, cmd models.ParentCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	if err := m.checkUnique(id, cmd.Username, cmd.Email); err != nil {
		return err
	}
	m.rows[id] = rowFromCommand(id, cmd, existing.CreatedAt)
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *Memory) FindByID(_ context.Context, id string) (*models.Parent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &row, nil
}

func (m *Memory) checkUnique(id, username, email string) error {
	for otherID, other := range m.rows {
		if otherID == id {
			continue
		}
		if other.Username == username {
			return &store.Error{Code: store.CodeUniqueViolation, Fields: []string{"username"}}
		}
		if email != "" && other.Email == email {
			return &store.Error{Code: store.CodeUniqueViolation, Fields: []string{"email"}}
		}
	}
	return nil
}

func rowFromCommand(id string, cmd models.ParentCommand, createdAt time.Time) models.Parent {
	return models.Parent{
		ID:        id,
		Username:  cmd.Username,
		Name:      cmd.Name,
		Surname:   cmd.Surname,
		Email:     cmd.Email,
		Phone:     cmd.Phone,
		Address:   cmd.Address,
		CreatedAt: createdAt,
	}
}
