package repository

import (
	"context"

	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// StockItemRepository define el puerto de persistencia para ítems del catálogo.
type StockItemRepository interface {
	// Create persiste el ítem y asigna toda su cantidad a la bodega central.
	Create(ctx context.Context, item *entity.StockItem) error
	GetByID(ctx context.Context, id string) (*entity.StockItem, error)
	List(ctx context.Context, limit, offset int) ([]*entity.StockItem, error)
	// LockForUpdate abre la sección crítica de los ítems dados hasta el fin de la transacción.
	LockForUpdate(ctx context.Context, ids []string) error
}
