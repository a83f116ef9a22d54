package repository

import (
	"context"

	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// MovementFilter filtros para listar movimientos. Campos vacíos no filtran.
type MovementFilter struct {
	StockItemID string
	HolderID    string
	Limit       int
	Offset      int
}

// MovementRepository define el puerto del libro de movimientos (solo inserción).
type MovementRepository interface {
	// Append inserta el movimiento y asigna su ID.
	Append(ctx context.Context, m *entity.Movement) error
	LastForItem(ctx context.Context, itemID string) (*entity.Movement, error)
	List(ctx context.Context, f MovementFilter) ([]*entity.Movement, error)
}
