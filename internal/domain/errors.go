package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrUserNotFound         = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists   = errors.New("el email ya está registrado")
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrUnauthorized         = errors.New("no autorizado")
	ErrForbidden            = errors.New("acceso denegado")
	ErrInvalidTransition    = errors.New("transición de estado inválida")
	ErrInsufficientQuantity = errors.New("cantidad insuficiente")
	ErrConservation         = errors.New("la suma de asignaciones no coincide con la cantidad del ítem")
	// ErrTransient marca contención del almacén (espera de lock, conflicto de serialización).
	// Se reintenta internamente; nunca debe llegar al llamador.
	ErrTransient = errors.New("contención transitoria del almacén")
	// ErrUnavailable se devuelve cuando se agotan los reintentos de un ErrTransient.
	ErrUnavailable = errors.New("servicio no disponible, reintente")
)

// InsufficientQuantityError detalla un débito rechazado: saldo actual y cantidad solicitada.
type InsufficientQuantityError struct {
	ItemID    string
	HolderID  string
	Available int64
	Requested int64
}

func (e *InsufficientQuantityError) Error() string {
	holder := e.HolderID
	if holder == "" {
		holder = "central"
	}
	return fmt.Sprintf("cantidad insuficiente para ítem %s en %s: disponible %d, solicitado %d",
		e.ItemID, holder, e.Available, e.Requested)
}

// Is permite errors.Is(err, ErrInsufficientQuantity).
func (e *InsufficientQuantityError) Is(target error) bool {
	return target == ErrInsufficientQuantity
}
