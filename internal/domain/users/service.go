package users

import (
	"context"
	"strings"
	"time"

	"medcontrol-backend/internal/platform/apperr"
	"medcontrol-backend/internal/platform/clock"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost = 10
	tokenTTL   = 7 * 24 * time.Hour
)

type Service struct {
	repo   Repository
	secret []byte
	now    func() time.Time
}

func NewService(repo Repository, secret []byte) *Service {
	return &Service{
		repo:   repo,
		secret: secret,
		now:    clock.NowUTC,
	}
}

func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, apperr.Validation("a valid email is required")
	}
	if len(password) < 6 {
		return User{}, apperr.Validation("password must have at least 6 characters")
	}

	if _, exists, err := s.repo.GetByEmail(ctx, email); err != nil {
		return User{}, err
	} else if exists {
		return User{}, apperr.Conflict("EMAIL_TAKEN", "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    clock.UTC(s.now()),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Login valida credenciales y emite un JWT HS256 con vigencia de 7 días.
func (s *Service) Login(ctx context.Context, email, password string) (string, User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, exists, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", User{}, err
	}
	if !exists {
		return "", User{}, apperr.Unauthorized("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", User{}, apperr.Unauthorized("invalid credentials")
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"email":   u.Email,
		"iat":     now.Unix(),
		"exp":     now.Add(tokenTTL).Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", User{}, err
	}
	return signed, u, nil
}
