package clock

import "time"

// UTC normaliza cualquier instante a UTC con precisión de milisegundos.
// Todas las comparaciones del motor de dosis (límites de generación,
// atraso, activación) pasan por aquí para que el resultado no dependa
// de la timezone del host.
func UTC(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NowUTC devuelve el "ahora" ya normalizado.
func NowUTC() time.Time {
	return UTC(time.Now())
}
