package dosages

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusTaken   Status = "taken"
	StatusLate    Status = "late"
	StatusMissed  Status = "missed"
)

// Terminal reporta si el estado ya no admite transiciones.
func (s Status) Terminal() bool {
	return s == StatusTaken || s == StatusLate || s == StatusMissed
}

// LateThresholdMinutes: una toma con más de 10 minutos de atraso se
// clasifica como late (10 exactos sigue siendo taken).
const LateThresholdMinutes = 10

// Dosage es una dosis esperada de un medicamento. Las filas nacen en lote
// desde el generador de calendario y solo cambian una vez: de pending a un
// estado terminal.
type Dosage struct {
	ID         string
	MedicineID string

	ExpectedTime time.Time // instante UTC en que corresponde la dosis
	Status       Status

	TakenAt     *time.Time // solo al salir de pending vía toma
	LateMinutes *int       // derivado, solo para late

	CreatedAt time.Time
}
