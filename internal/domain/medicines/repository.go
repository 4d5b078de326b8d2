package medicines

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, m Medicine) error
	Update(ctx context.Context, m Medicine) error
	GetByID(ctx context.Context, id string) (Medicine, error)
	FindByName(ctx context.Context, userID, name string) (Medicine, bool, error)
	ListByUser(ctx context.Context, userID string) ([]Medicine, error)
	Delete(ctx context.Context, id string) error
}

// DosageStore es la vista del coordinador sobre las filas de dosis.
// Solo primitivas (instantes, conteos) para que medicines no importe
// el paquete dosages y el grafo quede acíclico.
//
// InsertPending debe ignorar instantes que ya tienen fila para el
// medicamento (la regeneración nunca duplica ni resucita dosis).
type DosageStore interface {
	InsertPending(ctx context.Context, medicineID string, times []time.Time) (int, error)
	DeletePendingFrom(ctx context.Context, medicineID string, cutoff time.Time) (int, error)
	DeleteByMedicine(ctx context.Context, medicineID string) (int, error)
	CountFuturePending(ctx context.Context, medicineID string, after time.Time) (int, error)
}
