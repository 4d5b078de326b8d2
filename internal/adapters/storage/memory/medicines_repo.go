package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"medcontrol-backend/internal/domain/medicines"
)

type medicineRepo struct {
	mu   sync.RWMutex
	byID map[string]medicines.Medicine
}

func NewMedicineRepo() medicines.Repository {
	return &medicineRepo{
		byID: make(map[string]medicines.Medicine),
	}
}

func (r *medicineRepo) Create(ctx context.Context, m medicines.Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(m.ID) == "" {
		return errors.New("medicine id required")
	}
	if _, exists := r.byID[m.ID]; exists {
		return errors.New("medicine already exists")
	}
	r.byID[m.ID] = m
	return nil
}

func (r *medicineRepo) Update(ctx context.Context, m medicines.Medicine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[m.ID]; !exists {
		return medicines.ErrNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *medicineRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	return m, nil
}

func (r *medicineRepo) FindByName(ctx context.Context, userID, name string) (medicines.Medicine, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.byID {
		if m.UserID == userID && strings.EqualFold(m.Name, name) {
			return m, true, nil
		}
	}
	return medicines.Medicine{}, false, nil
}

func (r *medicineRepo) ListByUser(ctx context.Context, userID string) ([]medicines.Medicine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medicines.Medicine, 0)
	for _, m := range r.byID {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *medicineRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return medicines.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
