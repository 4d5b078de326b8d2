package schedule

import (
	"time"

	"medcontrol-backend/internal/platform/apperr"
	"medcontrol-backend/internal/platform/clock"
)

const (
	// MaxDosages acota la generación ante inputs patológicos
	// (p.ej. frecuencia de minutos sobre un período de años).
	MaxDosages = 5000

	// DefaultHorizonDays es el horizonte cuando el medicamento no tiene
	// fecha de fin.
	DefaultHorizonDays = 30
)

// ErrNoRule se devuelve si se intenta generar sin regla de dosificación.
// El coordinador de medicamentos normalmente lo previene en validación.
var ErrNoRule = apperr.BadRequest("INVALID_FREQUENCY", "medicine must have an hour frequency or fixed schedules")

// Generate enumera los instantes esperados de dosis para [start, end],
// con end = start + 30 días si es nil. Es una función pura: no toca I/O
// y es segura de llamar concurrentemente.
//
// Regla de filtrado: el primer instante emitido se conserva siempre,
// aunque esté en el pasado (un medicamento iniciado retroactivamente debe
// tener al menos una dosis); los siguientes solo se conservan si son
// >= now, para no fabricar un backlog de dosis ya perdidas.
func Generate(rule Rule, start time.Time, end *time.Time, now time.Time) ([]time.Time, error) {
	if rule == nil {
		return nil, ErrNoRule
	}

	startUTC := clock.UTC(start)
	endUTC := startUTC.Add(DefaultHorizonDays * 24 * time.Hour)
	if end != nil {
		endUTC = clock.UTC(*end)
	}
	nowUTC := clock.UTC(now)

	switch r := rule.(type) {
	case IntervalRule:
		return generateInterval(r, startUTC, endUTC, nowUTC)
	case FixedTimesRule:
		return generateFixedTimes(r, startUTC, endUTC, nowUTC)
	default:
		return nil, ErrNoRule
	}
}

func generateInterval(r IntervalRule, start, end, now time.Time) ([]time.Time, error) {
	if r.Hours <= 0 {
		return nil, ErrNoRule
	}

	step := time.Duration(r.Hours) * time.Hour
	out := make([]time.Time, 0, 64)

	for cur := start; !cur.After(end) && len(out) < MaxDosages; cur = cur.Add(step) {
		if len(out) == 0 || !cur.Before(now) {
			out = append(out, cur)
		}
	}

	return out, nil
}

func generateFixedTimes(r FixedTimesRule, start, end, now time.Time) ([]time.Time, error) {
	if len(r.Times) == 0 {
		return nil, ErrNoRule
	}

	out := make([]time.Time, 0, 64)

	// Día a día desde el día de start hasta el día de end, combinando cada
	// horario con el día en UTC. Cada día cubierto emite todos sus horarios,
	// incluso los anteriores a la hora de start o posteriores a la hora de
	// end: el día calendario completo cuenta.
	for day := start; !day.After(end) && len(out) < MaxDosages; day = nextDayUTC(day) {
		for _, ct := range r.Times {
			if len(out) >= MaxDosages {
				break
			}
			inst := time.Date(day.Year(), day.Month(), day.Day(), ct.Hour, ct.Minute, 0, 0, time.UTC)
			if len(out) == 0 || !inst.Before(now) {
				out = append(out, inst)
			}
		}
	}

	return out, nil
}

func nextDayUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
}
