package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medcontrol-backend/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenEmpty   = errors.New("token is empty")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Verifier implementa auth.AuthVerifier validando localmente JWTs HS256
// emitidos por el propio backend (users.Service.Login).
type Verifier struct {
	secret []byte
}

func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return auth.Claims{}, ErrTokenInvalid
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return auth.Claims{}, ErrTokenInvalid
	}

	userID, _ := mc["user_id"].(string)
	email, _ := mc["email"].(string)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return auth.Claims{}, ErrTokenInvalid
	}

	return auth.Claims{
		UserID: userID,
		Email:  strings.TrimSpace(email),
	}, nil
}
