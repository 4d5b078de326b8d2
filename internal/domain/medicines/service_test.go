package medicines

import (
	"context"
	"strings"
	"testing"
	"time"

	"medcontrol-backend/internal/domain/schedule"
	"medcontrol-backend/internal/platform/apperr"
	"medcontrol-backend/internal/platform/keymutex"
	"medcontrol-backend/internal/platform/logger"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Medicine
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Medicine{}}
}

func (r *testRepo) Create(ctx context.Context, m Medicine) error {
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) Update(ctx context.Context, m Medicine) error {
	if _, ok := r.byID[m.ID]; !ok {
		return ErrNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Medicine, error) {
	m, ok := r.byID[id]
	if !ok {
		return Medicine{}, ErrNotFound
	}
	return m, nil
}

func (r *testRepo) FindByName(ctx context.Context, userID, name string) (Medicine, bool, error) {
	for _, m := range r.byID {
		if m.UserID == userID && strings.EqualFold(m.Name, name) {
			return m, true, nil
		}
	}
	return Medicine{}, false, nil
}

func (r *testRepo) ListByUser(ctx context.Context, userID string) ([]Medicine, error) {
	out := make([]Medicine, 0)
	for _, m := range r.byID {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

// -------------------------
// Test dosage store
// -------------------------

type testDoseStore struct {
	pending     map[string][]time.Time // medicineID -> instantes pendientes
	deleteFrom  []time.Time            // cutoffs con los que se llamó DeletePendingFrom
	deleteCalls int
}

func newTestDoseStore() *testDoseStore {
	return &testDoseStore{pending: map[string][]time.Time{}}
}

func (s *testDoseStore) InsertPending(ctx context.Context, medicineID string, times []time.Time) (int, error) {
	existing := map[time.Time]struct{}{}
	for _, t := range s.pending[medicineID] {
		existing[t] = struct{}{}
	}

	inserted := 0
	for _, t := range times {
		if _, dup := existing[t]; dup {
			continue
		}
		s.pending[medicineID] = append(s.pending[medicineID], t)
		existing[t] = struct{}{}
		inserted++
	}
	return inserted, nil
}

func (s *testDoseStore) DeletePendingFrom(ctx context.Context, medicineID string, cutoff time.Time) (int, error) {
	s.deleteCalls++
	s.deleteFrom = append(s.deleteFrom, cutoff)

	kept := s.pending[medicineID][:0]
	deleted := 0
	for _, t := range s.pending[medicineID] {
		if t.Before(cutoff) {
			kept = append(kept, t)
		} else {
			deleted++
		}
	}
	s.pending[medicineID] = kept
	return deleted, nil
}

func (s *testDoseStore) DeleteByMedicine(ctx context.Context, medicineID string) (int, error) {
	n := len(s.pending[medicineID])
	delete(s.pending, medicineID)
	return n, nil
}

func (s *testDoseStore) CountFuturePending(ctx context.Context, medicineID string, after time.Time) (int, error) {
	count := 0
	for _, t := range s.pending[medicineID] {
		if !t.Before(after) {
			count++
		}
	}
	return count, nil
}

// -------------------------
// Tests
// -------------------------

func newTestService(repo *testRepo, store *testDoseStore) *Service {
	return NewService(repo, store, keymutex.New(), logger.New(logger.Options{Level: logger.Error}))
}

func TestService_Create_GeneratesPendingDosages(t *testing.T) {
	repo := newTestRepo()
	store := newTestDoseStore()
	svc := newTestService(repo, store)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name:           "Amoxicilina",
		Dosage:         "500mg",
		FrequencyHours: 12,
		DateStart:      now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Active {
		t.Fatalf("expected medicine to start active")
	}

	// Horizonte default de 30 días cada 12 horas
	if got := len(store.pending[m.ID]); got != 61 {
		t.Fatalf("expected 61 pending dosages, got %d", got)
	}
	if !store.pending[m.ID][0].Equal(now) {
		t.Fatalf("expected first dose at start, got %v", store.pending[m.ID][0])
	}
}

func TestService_Create_DuplicateName(t *testing.T) {
	repo := newTestRepo()
	store := newTestDoseStore()
	svc := newTestService(repo, store)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	in := CreateInput{Name: "Ibuprofeno", Dosage: "400mg", FrequencyHours: 8, DateStart: now}
	if _, err := svc.Create(context.Background(), "user-1", in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.Create(context.Background(), "user-1", in)
	if !apperr.IsCode(err, "MEDICINE_NAME_DUPLICATE") {
		t.Fatalf("expected MEDICINE_NAME_DUPLICATE, got %v", err)
	}

	// Mismo nombre para otro usuario sí se permite
	if _, err := svc.Create(context.Background(), "user-2", in); err != nil {
		t.Fatalf("unexpected error for other user: %v", err)
	}
}

func TestService_Create_RuleIsExclusive(t *testing.T) {
	repo := newTestRepo()
	store := newTestDoseStore()
	svc := newTestService(repo, store)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name:           "Mix",
		Dosage:         "1",
		FrequencyHours: 8,
		FixedSchedules: "08:00,20:00",
		DateStart:      now,
	})
	if !apperr.IsCode(err, "VALIDATION_ERROR") {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}

	_, err = svc.Create(context.Background(), "user-1", CreateInput{
		Name:      "Ninguna",
		Dosage:    "1",
		DateStart: now,
	})
	if err == nil {
		t.Fatalf("expected error when no rule is given")
	}
}

func TestService_Update_NoScheduleChangeSkipsRegeneration(t *testing.T) {
	repo := newTestRepo()
	store := newTestDoseStore()
	svc := newTestService(repo, store)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name: "Crema", Dosage: "1 aplicación", FrequencyHours: 24, DateStart: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	freq := 24
	obs := "después de comer"
	if _, err := svc.Update(context.Background(), "user-1", m.ID, UpdateInput{
		FrequencyHours: &freq,
		Observations:   &obs,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.deleteCalls != 0 {
		t.Fatalf("expected no regeneration for idempotent update, got %d delete calls", store.deleteCalls)
	}
}

func TestService_Update_FrequencyChangeRegenerates(t *testing.T) {
	repo := newTestRepo()
	store := newTestDoseStore()
	svc := newTestService(repo, store)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name: "Jarabe", Dosage: "5ml", FrequencyHours: 12, DateStart: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	freq := 24
	updated, err := svc.Update(context.Background(), "user-1", m.ID, UpdateInput{FrequencyHours: &freq})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r, ok := updated.Rule.(schedule.IntervalRule); !ok || r.Hours != 24 {
		t.Fatalf("expected interval rule of 24h, got %#v", updated.Rule)
	}

	if store.deleteCalls != 1 {
		t.Fatalf("expected one regeneration pass, got %d", store.deleteCalls)
	}
	// Cada 24h sobre 30 días
	if got := len(store.pending[m.ID]); got != 31 {
		t.Fatalf("expected 31 pending dosages after regeneration, got %d", got)
	}
}

func TestService_Update_SwitchToFixedSchedules(t *testing.T) {
	repo := newTestRepo()
	store := newTestDoseStore()
	svc := newTestService(repo, store)

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	end := now.Add(48 * time.Hour)
	m, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name: "Gotas", Dosage: "2 gotas", FrequencyHours: 6, DateStart: now, DateEnd: &end,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fs := "09:00,21:00"
	updated, err := svc.Update(context.Background(), "user-1", m.ID, UpdateInput{FixedSchedules: &fs})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := updated.Rule.(schedule.FixedTimesRule); !ok {
		t.Fatalf("expected fixed times rule, got %#v", updated.Rule)
	}

	for _, inst := range store.pending[m.ID] {
		h := inst.Hour()
		if h != 9 && h != 21 {
			t.Fatalf("expected only 09:00/21:00 instants after switch, got %v", inst)
		}
	}
}

func TestService_Update_ReactivationRebuildsFromDateStart(t *testing.T) {
	repo := newTestRepo()
	store := newTestDoseStore()
	svc := newTestService(repo, store)

	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	m, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name: "Parche", Dosage: "1", FrequencyHours: 24, DateStart: start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	off := false
	if _, err := svc.Update(context.Background(), "user-1", m.ID, UpdateInput{Active: &off}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.deleteCalls != 0 {
		t.Fatalf("deactivation alone must not regenerate, got %d delete calls", store.deleteCalls)
	}

	// Reactivar días después: el calendario se reconstruye desde dateStart
	later := start.Add(72 * time.Hour)
	svc.now = func() time.Time { return later }

	on := true
	if _, err := svc.Update(context.Background(), "user-1", m.ID, UpdateInput{Active: &on}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.deleteCalls != 1 {
		t.Fatalf("expected one regeneration pass on reactivation, got %d", store.deleteCalls)
	}
	if !store.deleteFrom[0].Equal(start) {
		t.Fatalf("expected cutoff at dateStart %v, got %v", start, store.deleteFrom[0])
	}
	if len(store.pending[m.ID]) == 0 {
		t.Fatalf("expected pending dosages after reactivation")
	}
}

func TestService_Delete_CascadesDosages(t *testing.T) {
	repo := newTestRepo()
	store := newTestDoseStore()
	svc := newTestService(repo, store)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name: "Antibiótico", Dosage: "250mg", FrequencyHours: 8, DateStart: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(context.Background(), "user-1", m.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := store.pending[m.ID]; ok {
		t.Fatalf("expected dosages to be deleted with the medicine")
	}
	if _, err := svc.GetForUser(context.Background(), "user-1", m.ID); !apperr.IsCode(err, "MEDICINE_NOT_FOUND") {
		t.Fatalf("expected MEDICINE_NOT_FOUND after delete, got %v", err)
	}
}

func TestService_Delete_OtherUsersMedicineIsHidden(t *testing.T) {
	repo := newTestRepo()
	store := newTestDoseStore()
	svc := newTestService(repo, store)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name: "Privado", Dosage: "1", FrequencyHours: 8, DateStart: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Delete(context.Background(), "user-2", m.ID); !apperr.IsCode(err, "MEDICINE_NOT_FOUND") {
		t.Fatalf("expected MEDICINE_NOT_FOUND for foreign medicine, got %v", err)
	}
}

func TestService_RegenerateNext(t *testing.T) {
	repo := newTestRepo()
	store := newTestDoseStore()
	svc := newTestService(repo, store)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	end := now.Add(24 * time.Hour)
	m, err := svc.Create(context.Background(), "user-1", CreateInput{
		Name: "Corto", Dosage: "1", FrequencyHours: 12, DateStart: now, DateEnd: &end,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := len(store.pending[m.ID])

	// Mismos instantes: InsertPending los saltea, no se duplica nada
	count, err := svc.RegenerateNext(context.Background(), "user-1", m.ID, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 new dosages over identical window, got %d", count)
	}
	if got := len(store.pending[m.ID]); got != before {
		t.Fatalf("expected pending count unchanged (%d), got %d", before, got)
	}

	if _, err := svc.RegenerateNext(context.Background(), "user-1", m.ID, 0); !apperr.IsCode(err, "VALIDATION_ERROR") {
		t.Fatalf("expected VALIDATION_ERROR for days out of range, got %v", err)
	}
	if _, err := svc.RegenerateNext(context.Background(), "user-1", m.ID, 400); !apperr.IsCode(err, "VALIDATION_ERROR") {
		t.Fatalf("expected VALIDATION_ERROR for days out of range, got %v", err)
	}
}
