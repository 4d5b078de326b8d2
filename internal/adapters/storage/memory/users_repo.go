package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"medcontrol-backend/internal/domain/users"
)

type userRepo struct {
	mu      sync.RWMutex
	byID    map[string]users.User
	byEmail map[string]string // email -> id
}

func NewUserRepo() users.Repository {
	return &userRepo{
		byID:    make(map[string]users.User),
		byEmail: make(map[string]string),
	}
}

func (r *userRepo) Create(ctx context.Context, u users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id required")
	}
	if _, exists := r.byEmail[u.Email]; exists {
		return errors.New("email already registered")
	}
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (users.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return users.User{}, false, nil
	}
	return r.byID[id], true, nil
}
