package medicines

import (
	"time"

	"medcontrol-backend/internal/domain/schedule"
)

// Medicine representa un medicamento registrado por un usuario.
// La regla de dosificación es una unión: intervalo en horas XOR horarios
// fijos del día; nunca ambos a la vez.
type Medicine struct {
	ID     string
	UserID string

	Name   string
	Dosage string // descripción libre: "2 comprimidos", "10ml"

	Rule schedule.Rule

	DateStart time.Time  // inclusivo, UTC
	DateEnd   *time.Time // inclusivo; nil = abierto (horizonte +30 días)

	Observations string
	Active       bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
