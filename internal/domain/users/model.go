package users

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string

	CreatedAt time.Time
}
