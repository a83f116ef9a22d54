package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/stockflow/internal/domain"
)

// keyLocks mutex exclusivos por clave (p. ej. "item:<id>") con espera acotada.
// Cada clave es un semáforo de capacidad 1 para poder abandonar la espera por ctx o timeout.
type keyLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newKeyLocks() *keyLocks {
	return &keyLocks{slots: make(map[string]chan struct{})}
}

func (l *keyLocks) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// acquire bloquea la clave. Si vence timeout devuelve domain.ErrTransient para que el
// llamador reintente; la operación protegida no llegó a ejecutarse.
func (l *keyLocks) acquire(ctx context.Context, key string, timeout time.Duration) error {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		return nil
	default:
	}
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return fmt.Errorf("%w: espera de lock %s", domain.ErrTransient, key)
	}
}

func (l *keyLocks) release(key string) {
	<-l.slot(key)
}
