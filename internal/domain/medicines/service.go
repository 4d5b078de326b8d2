package medicines

import (
	"context"
	"strings"
	"time"

	"medcontrol-backend/internal/domain/schedule"
	"medcontrol-backend/internal/platform/apperr"
	"medcontrol-backend/internal/platform/clock"
	"medcontrol-backend/internal/platform/keymutex"
	"medcontrol-backend/internal/platform/logger"

	"github.com/google/uuid"
)

// ErrNotFound cubre tanto "no existe" como "no es de este usuario":
// nunca revelamos medicamentos ajenos.
var ErrNotFound = apperr.NotFound("MEDICINE_NOT_FOUND", "medicine not found")

// Service es el coordinador del ciclo de vida del medicamento: mantiene el
// registro y su conjunto de dosis sincronizados ante creación, edición,
// reactivación y borrado.
type Service struct {
	repo  Repository
	doses DosageStore
	locks *keymutex.KeyedMutex
	log   *logger.Logger
	now   func() time.Time
}

func NewService(repo Repository, doses DosageStore, locks *keymutex.KeyedMutex, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		doses: doses,
		locks: locks,
		log:   log,
		now:   clock.NowUTC,
	}
}

type CreateInput struct {
	Name           string
	Dosage         string
	FrequencyHours int    // 0 = sin regla de intervalo
	FixedSchedules string // "" = sin horarios fijos
	DateStart      time.Time
	DateEnd        *time.Time
	Observations   string
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Medicine, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Medicine{}, apperr.Validation("user id is required")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Medicine{}, apperr.Validation("medicine name is required")
	}
	if strings.TrimSpace(in.Dosage) == "" {
		return Medicine{}, apperr.Validation("dosage is required")
	}
	if in.DateStart.IsZero() {
		return Medicine{}, apperr.Validation("date start is required")
	}

	rule, err := buildRule(in.FrequencyHours, in.FixedSchedules)
	if err != nil {
		return Medicine{}, err
	}

	dateStart := clock.UTC(in.DateStart)
	var dateEnd *time.Time
	if in.DateEnd != nil {
		e := clock.UTC(*in.DateEnd)
		if e.Before(dateStart) {
			return Medicine{}, apperr.Validation("date end must be equal or after date start")
		}
		dateEnd = &e
	}

	if _, exists, err := s.repo.FindByName(ctx, userID, name); err != nil {
		return Medicine{}, err
	} else if exists {
		return Medicine{}, apperr.Conflict("MEDICINE_NAME_DUPLICATE", "a medicine with this name already exists")
	}

	now := clock.UTC(s.now())
	m := Medicine{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         name,
		Dosage:       strings.TrimSpace(in.Dosage),
		Rule:         rule,
		DateStart:    dateStart,
		DateEnd:      dateEnd,
		Observations: strings.TrimSpace(in.Observations),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Medicine{}, err
	}

	// La generación es best-effort: si falla, el medicamento queda creado
	// igual (sin dosis) y el fallo solo se loguea.
	unlock := s.locks.Lock(m.ID)
	defer unlock()

	times, err := schedule.Generate(m.Rule, m.DateStart, m.DateEnd, now)
	if err == nil {
		_, err = s.doses.InsertPending(ctx, m.ID, times)
	}
	if err != nil {
		s.log.Error("dosage generation failed on create", map[string]any{
			"medicine_id": m.ID,
			"error":       err.Error(),
		})
	}

	return m, nil
}

// OptionalTime diferencia "campo no enviado" de "enviado como null"
// (necesario para poder limpiar date_end vía PATCH).
type OptionalTime struct {
	Present bool
	Value   *time.Time
}

type UpdateInput struct {
	// Punteros para PATCH real: nil = no tocar.
	Name           *string
	Dosage         *string
	FrequencyHours *int
	FixedSchedules *string // "" limpia los horarios fijos (requiere frecuencia)
	DateStart      *time.Time
	DateEnd        OptionalTime
	Observations   *string
	Active         *bool
}

func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (Medicine, error) {
	current, err := s.GetForUser(ctx, userID, id)
	if err != nil {
		return Medicine{}, err
	}

	merged := current
	scheduleChanged := false
	reactivated := false

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Medicine{}, apperr.Validation("medicine name is required")
		}
		if name != current.Name {
			if _, exists, err := s.repo.FindByName(ctx, userID, name); err != nil {
				return Medicine{}, err
			} else if exists {
				return Medicine{}, apperr.Conflict("MEDICINE_NAME_DUPLICATE", "a medicine with this name already exists")
			}
		}
		merged.Name = name
	}
	if in.Dosage != nil {
		d := strings.TrimSpace(*in.Dosage)
		if d == "" {
			return Medicine{}, apperr.Validation("dosage is required")
		}
		merged.Dosage = d
	}
	if in.Observations != nil {
		merged.Observations = strings.TrimSpace(*in.Observations)
	}

	// Regla: elegir una variante limpia la otra (exclusividad mutua).
	if in.FrequencyHours != nil || in.FixedSchedules != nil {
		newRule, err := mergeRule(current.Rule, in.FrequencyHours, in.FixedSchedules)
		if err != nil {
			return Medicine{}, err
		}
		if !rulesEqual(current.Rule, newRule) {
			merged.Rule = newRule
			scheduleChanged = true
		}
	}

	if in.DateStart != nil {
		ds := clock.UTC(*in.DateStart)
		if !ds.Equal(current.DateStart) {
			merged.DateStart = ds
			scheduleChanged = true
		}
	}
	if in.DateEnd.Present {
		var de *time.Time
		if in.DateEnd.Value != nil {
			e := clock.UTC(*in.DateEnd.Value)
			de = &e
		}
		if !timesEqual(current.DateEnd, de) {
			merged.DateEnd = de
			scheduleChanged = true
		}
	}
	if merged.DateEnd != nil && merged.DateEnd.Before(merged.DateStart) {
		return Medicine{}, apperr.Validation("date end must be equal or after date start")
	}

	if in.Active != nil {
		if *in.Active && !current.Active {
			reactivated = true
		}
		merged.Active = *in.Active
	}

	now := clock.UTC(s.now())
	merged.UpdatedAt = now

	if err := s.repo.Update(ctx, merged); err != nil {
		return Medicine{}, err
	}

	// Pase de regeneración: borrar pendientes futuras y volver a generar con
	// la regla efectiva. Al reactivar, el cutoff es el dateStart original
	// para reconstruir el calendario completo. Fallos se loguean, la edición
	// del medicamento no se revierte.
	if scheduleChanged || reactivated {
		unlock := s.locks.Lock(merged.ID)
		defer unlock()

		cutoff := now
		if reactivated {
			cutoff = merged.DateStart
		}

		if err := s.regenerate(ctx, merged, cutoff, now); err != nil {
			s.log.Error("dosage regeneration failed on update", map[string]any{
				"medicine_id": merged.ID,
				"error":       err.Error(),
			})
		}
	}

	return merged, nil
}

// regenerate asume que el caller tiene el lock del medicamento.
func (s *Service) regenerate(ctx context.Context, m Medicine, cutoff, now time.Time) error {
	if _, err := s.doses.DeletePendingFrom(ctx, m.ID, cutoff); err != nil {
		return err
	}

	times, err := schedule.Generate(m.Rule, m.DateStart, m.DateEnd, now)
	if err != nil {
		return err
	}

	// Instantes anteriores al cutoff no se reinsertan: sus filas (tomadas,
	// perdidas o pendientes pasadas) siguen existiendo y no deben duplicarse.
	kept := times[:0]
	for _, t := range times {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}

	_, err = s.doses.InsertPending(ctx, m.ID, kept)
	return err
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	m, err := s.GetForUser(ctx, userID, id)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(m.ID)
	defer unlock()

	// Cascada: primero las dosis, después el medicamento.
	if _, err := s.doses.DeleteByMedicine(ctx, m.ID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, m.ID)
}

// RegenerateNext genera las dosis pendientes de los próximos daysAhead días
// desde ahora con la regla vigente. Devuelve cuántas se crearon.
func (s *Service) RegenerateNext(ctx context.Context, userID, id string, daysAhead int) (int, error) {
	if daysAhead < 1 || daysAhead > 365 {
		return 0, apperr.Validation("days ahead must be between 1 and 365")
	}

	m, err := s.GetForUser(ctx, userID, id)
	if err != nil {
		return 0, err
	}

	unlock := s.locks.Lock(m.ID)
	defer unlock()

	now := clock.UTC(s.now())
	end := now.Add(time.Duration(daysAhead) * 24 * time.Hour)

	times, err := schedule.Generate(m.Rule, now, &end, now)
	if err != nil {
		return 0, err
	}
	return s.doses.InsertPending(ctx, m.ID, times)
}

// RebaseFrom re-basa el calendario de un medicamento de intervalo tras una
// toma atrasada: borra las pendientes posteriores a takenAt y regenera con
// ancla en takenAt + frecuencia, así las dosis futuras no quedan pegadas a
// los offsets originales. Los medicamentos con horarios fijos nunca se
// re-basan (su ancla es el calendario, no la toma anterior). El caller
// tiene el lock del medicamento.
func (s *Service) RebaseFrom(ctx context.Context, m Medicine, takenAt time.Time) (int, error) {
	r, ok := m.Rule.(schedule.IntervalRule)
	if !ok {
		return 0, nil
	}

	takenAt = clock.UTC(takenAt)
	if _, err := s.doses.DeletePendingFrom(ctx, m.ID, takenAt); err != nil {
		return 0, err
	}

	anchor := takenAt.Add(time.Duration(r.Hours) * time.Hour)
	times, err := schedule.Generate(m.Rule, anchor, m.DateEnd, clock.UTC(s.now()))
	if err != nil {
		return 0, err
	}
	return s.doses.InsertPending(ctx, m.ID, times)
}

// DeactivateIfComplete apaga el medicamento cuando ya no quedan dosis
// pendientes futuras (auto-completado). Lo invoca el motor de dosis después
// de cada transición. El caller tiene el lock del medicamento.
func (s *Service) DeactivateIfComplete(ctx context.Context, medicineID string) (bool, error) {
	m, err := s.repo.GetByID(ctx, medicineID)
	if err != nil {
		return false, err
	}
	if !m.Active {
		return false, nil
	}

	now := clock.UTC(s.now())
	pending, err := s.doses.CountFuturePending(ctx, m.ID, now)
	if err != nil {
		return false, err
	}
	if pending > 0 {
		return false, nil
	}

	m.Active = false
	m.UpdatedAt = now
	if err := s.repo.Update(ctx, m); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) GetForUser(ctx context.Context, userID, id string) (Medicine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medicine{}, ErrNotFound
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Medicine{}, err
	}
	if m.UserID != userID {
		return Medicine{}, ErrNotFound
	}
	return m, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Medicine, error) {
	return s.repo.ListByUser(ctx, userID)
}

func buildRule(frequencyHours int, fixedSchedules string) (schedule.Rule, error) {
	fixedSchedules = strings.TrimSpace(fixedSchedules)

	switch {
	case frequencyHours > 0 && fixedSchedules != "":
		return nil, apperr.Validation("frequency hours and fixed schedules are mutually exclusive")
	case fixedSchedules != "":
		times, err := schedule.ParseFixedTimes(fixedSchedules)
		if err != nil {
			return nil, err
		}
		return schedule.FixedTimesRule{Times: times}, nil
	case frequencyHours > 0:
		return schedule.IntervalRule{Hours: frequencyHours}, nil
	case frequencyHours < 0:
		return nil, apperr.Validation("frequency hours must be positive")
	default:
		return nil, schedule.ErrNoRule
	}
}

// mergeRule aplica el patch de regla sobre la regla vigente.
func mergeRule(current schedule.Rule, frequencyHours *int, fixedSchedules *string) (schedule.Rule, error) {
	freqSet := frequencyHours != nil && *frequencyHours != 0
	fixedSet := fixedSchedules != nil && strings.TrimSpace(*fixedSchedules) != ""

	switch {
	case freqSet && fixedSet:
		return nil, apperr.Validation("frequency hours and fixed schedules are mutually exclusive")
	case fixedSet:
		return buildRule(0, *fixedSchedules)
	case freqSet:
		return buildRule(*frequencyHours, "")
	case fixedSchedules != nil:
		// fixedSchedules enviado vacío: limpiar, solo válido si el
		// medicamento ya es de intervalo.
		if r, ok := current.(schedule.IntervalRule); ok {
			return r, nil
		}
		return nil, apperr.Validation("clearing fixed schedules requires an hour frequency")
	case frequencyHours != nil:
		// frecuencia 0 explícita: limpiar, solo válido si ya hay horarios fijos.
		if r, ok := current.(schedule.FixedTimesRule); ok {
			return r, nil
		}
		return nil, apperr.Validation("frequency hours must be positive")
	default:
		return current, nil
	}
}

func rulesEqual(a, b schedule.Rule) bool {
	switch ra := a.(type) {
	case schedule.IntervalRule:
		rb, ok := b.(schedule.IntervalRule)
		return ok && ra.Hours == rb.Hours
	case schedule.FixedTimesRule:
		rb, ok := b.(schedule.FixedTimesRule)
		if !ok || len(ra.Times) != len(rb.Times) {
			return false
		}
		for i := range ra.Times {
			if ra.Times[i] != rb.Times[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
