package middleware

import "net/http"

// RequestID es un placeholder.
// En el router usamos chi/middleware.RequestID.
func RequestID(next http.Handler) http.Handler {
	return next
}
