package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"medcontrol-backend/internal/domain/dosages"
	"medcontrol-backend/internal/platform/clock"

	"github.com/google/uuid"
)

// DosageRepo implementa tanto dosages.Repository como medicines.DosageStore:
// ambos puertos operan sobre la misma tabla.
type DosageRepo struct {
	mu   sync.RWMutex
	byID map[string]dosages.Dosage
}

func NewDosageRepo() *DosageRepo {
	return &DosageRepo{
		byID: make(map[string]dosages.Dosage),
	}
}

func (r *DosageRepo) Create(ctx context.Context, d dosages.Dosage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(d.ID) == "" {
		return errors.New("dosage id required")
	}
	if _, exists := r.byID[d.ID]; exists {
		return errors.New("dosage already exists")
	}
	r.byID[d.ID] = d
	return nil
}

func (r *DosageRepo) Update(ctx context.Context, d dosages.Dosage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[d.ID]; !exists {
		return dosages.ErrNotFound
	}
	r.byID[d.ID] = d
	return nil
}

func (r *DosageRepo) GetByID(ctx context.Context, id string) (dosages.Dosage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return dosages.Dosage{}, dosages.ErrNotFound
	}
	return d, nil
}

func (r *DosageRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return dosages.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *DosageRepo) ListByMedicine(ctx context.Context, medicineID string) ([]dosages.Dosage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]dosages.Dosage, 0)
	for _, d := range r.byID {
		if d.MedicineID == medicineID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpectedTime.Before(out[j].ExpectedTime) })
	return out, nil
}

func (r *DosageRepo) FindAroundTime(ctx context.Context, medicineID string, from, to time.Time) (dosages.Dosage, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.byID {
		if d.MedicineID != medicineID {
			continue
		}
		if !d.ExpectedTime.Before(from) && !d.ExpectedTime.After(to) {
			return d, true, nil
		}
	}
	return dosages.Dosage{}, false, nil
}

// InsertPending inserta dosis pendientes, saltando los instantes que ya
// existen para el medicamento (equivalente al ON CONFLICT DO NOTHING del
// adaptador postgres).
func (r *DosageRepo) InsertPending(ctx context.Context, medicineID string, times []time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := make(map[time.Time]struct{})
	for _, d := range r.byID {
		if d.MedicineID == medicineID {
			existing[d.ExpectedTime] = struct{}{}
		}
	}

	now := clock.NowUTC()
	inserted := 0
	for _, t := range times {
		t = clock.UTC(t)
		if _, dup := existing[t]; dup {
			continue
		}
		d := dosages.Dosage{
			ID:           uuid.NewString(),
			MedicineID:   medicineID,
			ExpectedTime: t,
			Status:       dosages.StatusPending,
			CreatedAt:    now,
		}
		r.byID[d.ID] = d
		existing[t] = struct{}{}
		inserted++
	}
	return inserted, nil
}

func (r *DosageRepo) DeletePendingFrom(ctx context.Context, medicineID string, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, d := range r.byID {
		if d.MedicineID != medicineID || d.Status != dosages.StatusPending {
			continue
		}
		if !d.ExpectedTime.Before(cutoff) {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *DosageRepo) DeleteByMedicine(ctx context.Context, medicineID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, d := range r.byID {
		if d.MedicineID == medicineID {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *DosageRepo) CountFuturePending(ctx context.Context, medicineID string, after time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, d := range r.byID {
		if d.MedicineID == medicineID && d.Status == dosages.StatusPending && !d.ExpectedTime.Before(after) {
			count++
		}
	}
	return count, nil
}
