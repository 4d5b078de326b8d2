package dosages

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, d Dosage) error
	Update(ctx context.Context, d Dosage) error
	GetByID(ctx context.Context, id string) (Dosage, error)
	Delete(ctx context.Context, id string) error
	DeleteByMedicine(ctx context.Context, medicineID string) (int, error)
	ListByMedicine(ctx context.Context, medicineID string) ([]Dosage, error)

	// FindAroundTime busca una dosis del medicamento en [from, to]
	// (ventana de duplicados al crear manualmente).
	FindAroundTime(ctx context.Context, medicineID string, from, to time.Time) (Dosage, bool, error)
}
