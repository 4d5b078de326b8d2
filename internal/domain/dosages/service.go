package dosages

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"medcontrol-backend/internal/domain/medicines"
	"medcontrol-backend/internal/domain/schedule"
	"medcontrol-backend/internal/platform/apperr"
	"medcontrol-backend/internal/platform/clock"
	"medcontrol-backend/internal/platform/keymutex"
	"medcontrol-backend/internal/platform/logger"

	"github.com/google/uuid"
)

var ErrNotFound = apperr.NotFound("DOSAGE_NOT_FOUND", "dosage not found")

// duplicateWindow: dos dosis del mismo medicamento a menos de 5 minutos se
// consideran la misma (protección contra doble registro manual).
const duplicateWindow = 5 * time.Minute

// Service es el motor de ciclo de vida de una dosis:
// pending -> {taken, late, missed}, estados terminales inmutables.
// Tras cada transición dispara los hooks del coordinador (re-base del
// calendario tras atraso, auto-desactivación al quedar sin pendientes).
type Service struct {
	repo  Repository
	meds  *medicines.Service
	locks *keymutex.KeyedMutex
	log   *logger.Logger
	now   func() time.Time
}

func NewService(repo Repository, meds *medicines.Service, locks *keymutex.KeyedMutex, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		meds:  meds,
		locks: locks,
		log:   log,
		now:   clock.NowUTC,
	}
}

// MarkTaken registra la toma de una dosis en el instante at (o ahora).
// Clasifica taken/late según el atraso y dispara los efectos colaterales.
func (s *Service) MarkTaken(ctx context.Context, userID, dosageID string, at *time.Time) (Dosage, error) {
	// Primera lectura solo para conocer el medicamento y poder tomar su
	// lock; el estado real se relee adentro.
	d, err := s.getOwned(ctx, userID, dosageID)
	if err != nil {
		return Dosage{}, err
	}

	unlock := s.locks.Lock(d.MedicineID)
	defer unlock()

	d, err = s.getOwned(ctx, userID, dosageID)
	if err != nil {
		return Dosage{}, err
	}
	med, err := s.meds.GetForUser(ctx, userID, d.MedicineID)
	if err != nil {
		return Dosage{}, err
	}

	if !med.Active {
		return Dosage{}, apperr.BadRequest("INACTIVE_MEDICINE", "cannot change doses of an inactive medicine")
	}
	if d.Status.Terminal() {
		return Dosage{}, apperr.BadRequest("STATUS_CHANGE_FORBIDDEN", fmt.Sprintf("dose already recorded as %s", d.Status))
	}

	takenAt := clock.UTC(s.now())
	if at != nil {
		takenAt = clock.UTC(*at)
	}

	if takenAt.Before(d.ExpectedTime) {
		remaining := int(d.ExpectedTime.Sub(takenAt).Minutes())
		if d.ExpectedTime.Sub(takenAt)%time.Minute != 0 {
			remaining++
		}
		return Dosage{}, apperr.BadRequest("DOSE_TOO_EARLY",
			fmt.Sprintf("dose cannot be taken before its scheduled time, wait %d minute(s)", remaining))
	}

	lateMinutes := int(takenAt.Sub(d.ExpectedTime).Minutes())
	if lateMinutes < 0 {
		lateMinutes = 0
	}

	d.TakenAt = &takenAt
	if lateMinutes > LateThresholdMinutes {
		d.Status = StatusLate
		d.LateMinutes = &lateMinutes
	} else {
		d.Status = StatusTaken
		d.LateMinutes = nil
	}

	if err := s.repo.Update(ctx, d); err != nil {
		return Dosage{}, err
	}

	// Una toma atrasada re-basa el resto del calendario de intervalo desde
	// takenAt + frecuencia, para que las dosis futuras no queden ancladas a
	// los offsets originales. Best-effort: el registro de la toma ya quedó.
	if d.Status == StatusLate {
		if _, ok := med.Rule.(schedule.IntervalRule); ok {
			if _, err := s.meds.RebaseFrom(ctx, med, takenAt); err != nil {
				s.log.Error("schedule rebase after late dose failed", map[string]any{
					"medicine_id": med.ID,
					"dosage_id":   d.ID,
					"error":       err.Error(),
				})
			}
		}
	}

	s.deactivateIfComplete(ctx, med.ID)

	return d, nil
}

// MarkMissed marca una dosis pendiente como perdida (acción explícita del
// usuario, sin precondición de horario).
func (s *Service) MarkMissed(ctx context.Context, userID, dosageID string) (Dosage, error) {
	d, err := s.getOwned(ctx, userID, dosageID)
	if err != nil {
		return Dosage{}, err
	}

	unlock := s.locks.Lock(d.MedicineID)
	defer unlock()

	d, err = s.getOwned(ctx, userID, dosageID)
	if err != nil {
		return Dosage{}, err
	}
	med, err := s.meds.GetForUser(ctx, userID, d.MedicineID)
	if err != nil {
		return Dosage{}, err
	}

	if !med.Active {
		return Dosage{}, apperr.BadRequest("INACTIVE_MEDICINE", "cannot change doses of an inactive medicine")
	}
	if d.Status.Terminal() {
		return Dosage{}, apperr.BadRequest("STATUS_CHANGE_FORBIDDEN", fmt.Sprintf("dose already recorded as %s", d.Status))
	}

	d.Status = StatusMissed
	if err := s.repo.Update(ctx, d); err != nil {
		return Dosage{}, err
	}

	s.deactivateIfComplete(ctx, med.ID)

	return d, nil
}

// Delete borra una dosis. Solo se permite mientras sigue pendiente.
func (s *Service) Delete(ctx context.Context, userID, dosageID string) error {
	d, err := s.getOwned(ctx, userID, dosageID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(d.MedicineID)
	defer unlock()

	d, err = s.getOwned(ctx, userID, dosageID)
	if err != nil {
		return err
	}

	if d.Status.Terminal() {
		return apperr.BadRequest("DELETE_FORBIDDEN", "cannot delete doses already recorded")
	}
	return s.repo.Delete(ctx, d.ID)
}

// Create registra una dosis manual para un medicamento activo del usuario.
func (s *Service) Create(ctx context.Context, userID, medicineID string, expectedTime time.Time) (Dosage, error) {
	med, err := s.meds.GetForUser(ctx, userID, medicineID)
	if err != nil {
		return Dosage{}, err
	}
	if !med.Active {
		return Dosage{}, apperr.BadRequest("INACTIVE_MEDICINE", "cannot create doses for an inactive medicine")
	}
	if expectedTime.IsZero() {
		return Dosage{}, apperr.Validation("expected time is required")
	}

	unlock := s.locks.Lock(med.ID)
	defer unlock()

	expected := clock.UTC(expectedTime)

	if _, exists, err := s.repo.FindAroundTime(ctx, med.ID, expected.Add(-duplicateWindow), expected.Add(duplicateWindow)); err != nil {
		return Dosage{}, err
	} else if exists {
		return Dosage{}, apperr.Conflict("DUPLICATE_DOSAGE", "a dose for this medicine already exists around that time")
	}

	d := Dosage{
		ID:           uuid.NewString(),
		MedicineID:   med.ID,
		ExpectedTime: expected,
		Status:       StatusPending,
		CreatedAt:    clock.UTC(s.now()),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return Dosage{}, err
	}
	return d, nil
}

// DeleteByMedicine vacía el calendario completo de un medicamento,
// historial incluido, sin tocar el medicamento en sí.
func (s *Service) DeleteByMedicine(ctx context.Context, userID, medicineID string) (int, error) {
	med, err := s.meds.GetForUser(ctx, userID, medicineID)
	if err != nil {
		return 0, err
	}

	unlock := s.locks.Lock(med.ID)
	defer unlock()

	return s.repo.DeleteByMedicine(ctx, med.ID)
}

func (s *Service) Get(ctx context.Context, userID, dosageID string) (Dosage, error) {
	return s.getOwned(ctx, userID, dosageID)
}

// List devuelve todas las dosis del usuario ordenadas por horario esperado.
func (s *Service) List(ctx context.Context, userID string) ([]Dosage, error) {
	meds, err := s.meds.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]Dosage, 0)
	for _, m := range meds {
		items, err := s.repo.ListByMedicine(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpectedTime.Before(out[j].ExpectedTime)
	})
	return out, nil
}

func (s *Service) ListByMedicine(ctx context.Context, userID, medicineID string) ([]Dosage, error) {
	med, err := s.meds.GetForUser(ctx, userID, medicineID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByMedicine(ctx, med.ID)
}

// getOwned resuelve la dosis verificando que el medicamento sea del usuario.
// Dosis ajenas se reportan como inexistentes.
func (s *Service) getOwned(ctx context.Context, userID, dosageID string) (Dosage, error) {
	dosageID = strings.TrimSpace(dosageID)
	if dosageID == "" {
		return Dosage{}, ErrNotFound
	}

	d, err := s.repo.GetByID(ctx, dosageID)
	if err != nil {
		return Dosage{}, err
	}

	if _, err := s.meds.GetForUser(ctx, userID, d.MedicineID); err != nil {
		return Dosage{}, ErrNotFound
	}
	return d, nil
}

// deactivateIfComplete es best-effort: el fallo no afecta la transición de
// la dosis que lo disparó.
func (s *Service) deactivateIfComplete(ctx context.Context, medicineID string) {
	if _, err := s.meds.DeactivateIfComplete(ctx, medicineID); err != nil {
		s.log.Error("medicine auto-deactivation check failed", map[string]any{
			"medicine_id": medicineID,
			"error":       err.Error(),
		})
	}
}
