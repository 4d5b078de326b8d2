package router

import (
	"database/sql"
	"net/http"
	"os"

	mem "medcontrol-backend/internal/adapters/storage/memory"
	pg "medcontrol-backend/internal/adapters/storage/postgres"
	_ "medcontrol-backend/docs"
	"medcontrol-backend/internal/domain/dosages"
	"medcontrol-backend/internal/domain/medicines"
	"medcontrol-backend/internal/domain/users"
	"medcontrol-backend/internal/middleware"
	"medcontrol-backend/internal/platform/keymutex"
	"medcontrol-backend/internal/platform/logger"
	"medcontrol-backend/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev con X-Debug-User-ID)

	// Secreto para firmar tokens de login. Si viene vacío se usa uno de dev.
	JWTSecret []byte

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	var (
		userRepo     users.Repository
		medicineRepo medicines.Repository
		dosageRepo   dosages.Repository
		dosageStore  medicines.DosageStore
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			}
		}
	}

	if db != nil {
		userRepo = pg.NewUsersRepo(db)
		medicineRepo = pg.NewMedicinesRepo(db)
		doseRepo := pg.NewDosagesRepo(db)
		dosageRepo = doseRepo
		dosageStore = doseRepo
	} else {
		userRepo = mem.NewUserRepo()
		medicineRepo = mem.NewMedicineRepo()
		doseRepo := mem.NewDosageRepo()
		dosageRepo = doseRepo
		dosageStore = doseRepo
	}

	secret := opts.JWTSecret
	if len(secret) == 0 {
		secret = []byte("dev-secret")
	}

	log := logger.NewFromEnv()
	locks := keymutex.New()

	// Services por módulo; medicamentos y dosis comparten locks por medicina.
	usersSvc := users.NewService(userRepo, secret)
	medicinesSvc := medicines.NewService(medicineRepo, dosageStore, locks, log)
	dosagesSvc := dosages.NewService(dosageRepo, medicinesSvc, locks, log)

	// Rutas por módulo
	users.RegisterRoutes(r, usersSvc)
	medicines.RegisterRoutes(r, medicinesSvc)
	dosages.RegisterRoutes(r, dosagesSvc)

	return r
}
