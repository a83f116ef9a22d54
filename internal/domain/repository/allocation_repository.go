package repository

import (
	"context"

	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// AllocationRepository define el puerto para saldos por (ítem, tenedor).
// Usado dentro de transacciones con el ítem bloqueado.
type AllocationRepository interface {
	// Get devuelve la asignación o una en cero si no existe la fila.
	Get(ctx context.Context, itemID, holderID string) (*entity.Allocation, error)
	ListByItem(ctx context.Context, itemID string) ([]*entity.Allocation, error)
	ListByHolder(ctx context.Context, holderID string) ([]*entity.Allocation, error)
	Upsert(ctx context.Context, a *entity.Allocation) error
	Delete(ctx context.Context, itemID, holderID string) error
}
