package middleware

import "net/http"

// Recover es un placeholder.
// El router usa chi/middleware.Recoverer; este archivo solo existe para
// no romper compilación si alguien lo referencia.
func Recover(next http.Handler) http.Handler {
	return next
}
