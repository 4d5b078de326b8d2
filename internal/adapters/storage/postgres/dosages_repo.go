package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"medcontrol-backend/internal/domain/dosages"
	"medcontrol-backend/internal/platform/clock"

	"github.com/google/uuid"
)

// DosagesRepo implementa dosages.Repository y medicines.DosageStore.
// Requiere un índice único sobre (medicine_id, expected_time) para que
// InsertPending sea idempotente.
type DosagesRepo struct {
	db *sql.DB
}

func NewDosagesRepo(db *sql.DB) *DosagesRepo {
	return &DosagesRepo{db: db}
}

func (r *DosagesRepo) Create(ctx context.Context, d dosages.Dosage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dosages (
			id, medicine_id,
			expected_time, status,
			taken_at, late_minutes,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		d.ID,
		d.MedicineID,
		d.ExpectedTime,
		string(d.Status),
		toNullTime(d.TakenAt),
		toNullInt(d.LateMinutes),
		d.CreatedAt,
	)
	return err
}

func (r *DosagesRepo) Update(ctx context.Context, d dosages.Dosage) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE dosages
		SET
			expected_time = $2,
			status = $3,
			taken_at = $4,
			late_minutes = $5
		WHERE id = $1
	`,
		d.ID,
		d.ExpectedTime,
		string(d.Status),
		toNullTime(d.TakenAt),
		toNullInt(d.LateMinutes),
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return dosages.ErrNotFound
	}
	return nil
}

func (r *DosagesRepo) GetByID(ctx context.Context, id string) (dosages.Dosage, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return dosages.Dosage{}, dosages.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, medicine_id, expected_time, status, taken_at, late_minutes, created_at
		FROM dosages
		WHERE id = $1
	`, id)

	d, err := scanDosage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return dosages.Dosage{}, dosages.ErrNotFound
		}
		return dosages.Dosage{}, err
	}
	return d, nil
}

func (r *DosagesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dosages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return dosages.ErrNotFound
	}
	return nil
}

func (r *DosagesRepo) ListByMedicine(ctx context.Context, medicineID string) ([]dosages.Dosage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, medicine_id, expected_time, status, taken_at, late_minutes, created_at
		FROM dosages
		WHERE medicine_id = $1
		ORDER BY expected_time ASC
	`, medicineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]dosages.Dosage, 0)
	for rows.Next() {
		d, err := scanDosage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DosagesRepo) FindAroundTime(ctx context.Context, medicineID string, from, to time.Time) (dosages.Dosage, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, medicine_id, expected_time, status, taken_at, late_minutes, created_at
		FROM dosages
		WHERE medicine_id = $1 AND expected_time BETWEEN $2 AND $3
		ORDER BY expected_time ASC
		LIMIT 1
	`, medicineID, from, to)

	d, err := scanDosage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return dosages.Dosage{}, false, nil
		}
		return dosages.Dosage{}, false, err
	}
	return d, true, nil
}

func (r *DosagesRepo) InsertPending(ctx context.Context, medicineID string, times []time.Time) (int, error) {
	if len(times) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := clock.NowUTC()
	inserted := 0
	for _, t := range times {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO dosages (id, medicine_id, expected_time, status, created_at)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (medicine_id, expected_time) DO NOTHING
		`,
			uuid.NewString(),
			medicineID,
			clock.UTC(t),
			string(dosages.StatusPending),
			now,
		)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *DosagesRepo) DeletePendingFrom(ctx context.Context, medicineID string, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM dosages
		WHERE medicine_id = $1 AND status = $2 AND expected_time >= $3
	`, medicineID, string(dosages.StatusPending), cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *DosagesRepo) DeleteByMedicine(ctx context.Context, medicineID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dosages WHERE medicine_id = $1`, medicineID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *DosagesRepo) CountFuturePending(ctx context.Context, medicineID string, after time.Time) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM dosages
		WHERE medicine_id = $1 AND status = $2 AND expected_time >= $3
	`, medicineID, string(dosages.StatusPending), after)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanDosage(row rowScanner) (dosages.Dosage, error) {
	var d dosages.Dosage
	var status string
	var takenAt sql.NullTime
	var lateMin sql.NullInt64

	if err := row.Scan(
		&d.ID,
		&d.MedicineID,
		&d.ExpectedTime,
		&status,
		&takenAt,
		&lateMin,
		&d.CreatedAt,
	); err != nil {
		return dosages.Dosage{}, err
	}

	d.Status = dosages.Status(status)
	d.ExpectedTime = d.ExpectedTime.UTC()
	d.CreatedAt = d.CreatedAt.UTC()
	if takenAt.Valid {
		t := takenAt.Time.UTC()
		d.TakenAt = &t
	}
	if lateMin.Valid {
		n := int(lateMin.Int64)
		d.LateMinutes = &n
	}
	return d, nil
}

func toNullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
