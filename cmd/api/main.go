package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"medcontrol-backend/internal/adapters/auth/jwtauth"
	"medcontrol-backend/internal/ports/auth"
	"medcontrol-backend/internal/router"

	"github.com/joho/godotenv"
)

func main() {
	// .env opcional para dev; en producción todo llega por entorno.
	_ = godotenv.Load()

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	var verifier auth.AuthVerifier
	var secret []byte
	if v := os.Getenv("JWT_SECRET"); v != "" {
		secret = []byte(v)
		verifier = jwtauth.NewVerifier(secret)
	} else {
		log.Printf("JWT_SECRET not set, running in dev mode (X-Debug-User-ID)")
	}

	r := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		JWTSecret:    secret,
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("starting server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
