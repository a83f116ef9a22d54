package repository

import (
	"context"

	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// RequestFilter filtros para listar solicitudes. Campos vacíos no filtran.
type RequestFilter struct {
	AssignedTo string
	CreatedBy  string
	Status     entity.RequestStatus
	Limit      int
	Offset     int
}

// RequestRepository define el puerto de persistencia para solicitudes y su historial.
type RequestRepository interface {
	Create(ctx context.Context, r *entity.Request) error
	GetByID(ctx context.Context, id string) (*entity.Request, error)
	// GetForUpdate obtiene la solicitud bloqueándola hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Request, error)
	// Update persiste estado, asignado, notas y fecha de decisión (los ítems son inmutables).
	Update(ctx context.Context, r *entity.Request) error
	AppendTransitions(ctx context.Context, ts []entity.RequestTransition) error
	List(ctx context.Context, f RequestFilter) ([]*entity.Request, error)
}
