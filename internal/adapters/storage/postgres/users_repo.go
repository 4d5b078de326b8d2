package postgres

import (
	"context"
	"database/sql"

	"medcontrol-backend/internal/domain/users"
)

type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) Create(ctx context.Context, u users.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1,$2,$3,$4)
	`,
		u.ID,
		u.Email,
		u.PasswordHash,
		u.CreatedAt,
	)
	return err
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (users.User, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email)

	var u users.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return users.User{}, false, nil
		}
		return users.User{}, false, err
	}
	return u, true, nil
}
