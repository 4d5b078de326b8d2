package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"medcontrol-backend/internal/platform/apperr"
)

// Rule es la regla de dosificación de un medicamento. Exactamente una
// variante está activa a la vez: intervalo en horas o lista de horarios
// fijos del día. El generador hace switch exhaustivo sobre la variante
// en vez de mirar presencia de campos.
type Rule interface {
	isRule()
}

// IntervalRule: una dosis cada Hours horas desde dateStart.
type IntervalRule struct {
	Hours int
}

func (IntervalRule) isRule() {}

// FixedTimesRule: dosis a horarios fijos del día (anclados al calendario,
// nunca se re-basan tras una toma atrasada).
type FixedTimesRule struct {
	Times []ClockTime
}

func (FixedTimesRule) isRule() {}

// ClockTime es un horario HH:MM en reloj de 24 horas.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) before(o ClockTime) bool {
	if c.Hour != o.Hour {
		return c.Hour < o.Hour
	}
	return c.Minute < o.Minute
}

var fixedTimesRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(,\s*([01]\d|2[0-3]):[0-5]\d)*$`)

// ParseFixedTimes valida "HH:MM,HH:MM,..." y devuelve los horarios
// ordenados y sin duplicados.
func ParseFixedTimes(s string) ([]ClockTime, error) {
	s = strings.TrimSpace(s)
	if !fixedTimesRe.MatchString(s) {
		return nil, apperr.Validation("fixed schedules must be HH:MM times separated by commas")
	}

	seen := map[ClockTime]struct{}{}
	out := make([]ClockTime, 0, 4)

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		h, _ := strconv.Atoi(part[:2])
		m, _ := strconv.Atoi(part[3:])

		ct := ClockTime{Hour: h, Minute: m}
		if _, ok := seen[ct]; ok {
			continue
		}
		seen[ct] = struct{}{}
		out = append(out, ct)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].before(out[j]) })
	return out, nil
}

// FormatFixedTimes es el inverso de ParseFixedTimes (para persistencia y API).
func FormatFixedTimes(times []ClockTime) string {
	parts := make([]string, 0, len(times))
	for _, t := range times {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ",")
}
