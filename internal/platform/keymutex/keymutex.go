package keymutex

import "sync"

// KeyedMutex serializa operaciones por clave (acá: por medicineID).
// "Marcar tomada" puede borrar y regenerar dosis futuras; sin esto,
// dos requests concurrentes sobre el mismo medicamento pueden pisarse.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*entry),
	}
}

// Lock bloquea la clave y devuelve la función de unlock.
// Las entradas se liberan cuando nadie las espera, para no crecer sin límite.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
