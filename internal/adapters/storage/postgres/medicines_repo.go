package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"medcontrol-backend/internal/domain/medicines"
	"medcontrol-backend/internal/domain/schedule"
)

type MedicinesRepo struct {
	db *sql.DB
}

func NewMedicinesRepo(db *sql.DB) *MedicinesRepo {
	return &MedicinesRepo{db: db}
}

func (r *MedicinesRepo) Create(ctx context.Context, m medicines.Medicine) error {
	freq, fixed := ruleColumns(m.Rule)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO medicines (
			id, user_id,
			name, dosage,
			frequency_hours, fixed_schedules,
			date_start, date_end,
			observations, active,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		m.ID,
		m.UserID,
		m.Name,
		m.Dosage,
		freq,
		fixed,
		m.DateStart,
		toNullTime(m.DateEnd),
		m.Observations,
		m.Active,
		m.CreatedAt,
		m.UpdatedAt,
	)
	return err
}

func (r *MedicinesRepo) Update(ctx context.Context, m medicines.Medicine) error {
	freq, fixed := ruleColumns(m.Rule)
	res, err := r.db.ExecContext(ctx, `
		UPDATE medicines
		SET
			name = $2,
			dosage = $3,
			frequency_hours = $4,
			fixed_schedules = $5,
			date_start = $6,
			date_end = $7,
			observations = $8,
			active = $9,
			updated_at = $10
		WHERE id = $1
	`,
		m.ID,
		m.Name,
		m.Dosage,
		freq,
		fixed,
		m.DateStart,
		toNullTime(m.DateEnd),
		m.Observations,
		m.Active,
		m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medicines.ErrNotFound
	}
	return nil
}

func (r *MedicinesRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medicines.Medicine{}, medicines.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, user_id,
			name, dosage,
			frequency_hours, fixed_schedules,
			date_start, date_end,
			observations, active,
			created_at, updated_at
		FROM medicines
		WHERE id = $1
	`, id)

	m, err := scanMedicine(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return medicines.Medicine{}, medicines.ErrNotFound
		}
		return medicines.Medicine{}, err
	}
	return m, nil
}

func (r *MedicinesRepo) FindByName(ctx context.Context, userID, name string) (medicines.Medicine, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, user_id,
			name, dosage,
			frequency_hours, fixed_schedules,
			date_start, date_end,
			observations, active,
			created_at, updated_at
		FROM medicines
		WHERE user_id = $1 AND LOWER(name) = LOWER($2)
	`, userID, name)

	m, err := scanMedicine(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return medicines.Medicine{}, false, nil
		}
		return medicines.Medicine{}, false, err
	}
	return m, true, nil
}

func (r *MedicinesRepo) ListByUser(ctx context.Context, userID string) ([]medicines.Medicine, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, user_id,
			name, dosage,
			frequency_hours, fixed_schedules,
			date_start, date_end,
			observations, active,
			created_at, updated_at
		FROM medicines
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medicines.Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MedicinesRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medicines.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedicine(row rowScanner) (medicines.Medicine, error) {
	var m medicines.Medicine
	var freq sql.NullInt64
	var fixed sql.NullString
	var dateEnd sql.NullTime

	if err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Name,
		&m.Dosage,
		&freq,
		&fixed,
		&m.DateStart,
		&dateEnd,
		&m.Observations,
		&m.Active,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return medicines.Medicine{}, err
	}

	switch {
	case fixed.Valid && strings.TrimSpace(fixed.String) != "":
		times, err := schedule.ParseFixedTimes(fixed.String)
		if err != nil {
			return medicines.Medicine{}, err
		}
		m.Rule = schedule.FixedTimesRule{Times: times}
	case freq.Valid && freq.Int64 > 0:
		m.Rule = schedule.IntervalRule{Hours: int(freq.Int64)}
	}

	if dateEnd.Valid {
		t := dateEnd.Time
		m.DateEnd = &t
	}

	m.DateStart = m.DateStart.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	if m.DateEnd != nil {
		t := m.DateEnd.UTC()
		m.DateEnd = &t
	}
	return m, nil
}

func ruleColumns(rule schedule.Rule) (sql.NullInt64, sql.NullString) {
	switch r := rule.(type) {
	case schedule.IntervalRule:
		return sql.NullInt64{Int64: int64(r.Hours), Valid: true}, sql.NullString{}
	case schedule.FixedTimesRule:
		return sql.NullInt64{}, sql.NullString{String: schedule.FormatFixedTimes(r.Times), Valid: true}
	}
	return sql.NullInt64{}, sql.NullString{}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
