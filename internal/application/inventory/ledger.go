package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

// Ledger libro de asignaciones de una unidad de trabajo. Es el único que escribe saldos y
// exige que, por ítem, la suma de asignaciones (incluida la bodega central) sea StockItem.Quantity.
// Las llamadas deben hacerse con el ítem bloqueado (LockForUpdate).
type Ledger struct {
	items  repository.StockItemRepository
	allocs repository.AllocationRepository
	net    map[string]int64 // delta neto aplicado por ítem en esta unidad
}

// NewLedger construye el libro sobre los repositorios de la transacción.
func NewLedger(uow repository.UnitOfWork) *Ledger {
	return &Ledger{items: uow.Items, allocs: uow.Allocations, net: make(map[string]int64)}
}

// Balance saldo del tenedor; 0 si no hay fila.
func (l *Ledger) Balance(ctx context.Context, itemID, holderID string) (int64, error) {
	a, err := l.allocs.Get(ctx, itemID, holderID)
	if err != nil {
		return 0, err
	}
	return a.Quantity, nil
}

// Adjust aplica delta (con signo) al saldo del tenedor y devuelve el nuevo saldo.
// Crea la fila si no existe y la elimina al llegar a cero.
func (l *Ledger) Adjust(ctx context.Context, itemID, holderID string, delta int64) (int64, error) {
	a, err := l.allocs.Get(ctx, itemID, holderID)
	if err != nil {
		return 0, err
	}
	if delta == 0 {
		return a.Quantity, nil
	}
	next := a.Quantity + delta
	if next < 0 {
		return a.Quantity, &domain.InsufficientQuantityError{
			ItemID:    itemID,
			HolderID:  holderID,
			Available: a.Quantity,
			Requested: -delta,
		}
	}
	if next == 0 {
		err = l.allocs.Delete(ctx, itemID, holderID)
	} else {
		err = l.allocs.Upsert(ctx, &entity.Allocation{
			StockItemID: itemID,
			HolderID:    holderID,
			Quantity:    next,
			UpdatedAt:   time.Now(),
		})
	}
	if err != nil {
		return a.Quantity, err
	}
	l.net[itemID] += delta
	return next, nil
}

// Verify comprueba la conservación del ítem: delta neto cero en la unidad y
// suma de asignaciones igual a la cantidad del ítem.
func (l *Ledger) Verify(ctx context.Context, itemID string) error {
	if d := l.net[itemID]; d != 0 {
		return fmt.Errorf("%w: delta neto %d en ítem %s", domain.ErrConservation, d, itemID)
	}
	item, err := l.items.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: ítem %s", domain.ErrNotFound, itemID)
	}
	allocs, err := l.allocs.ListByItem(ctx, itemID)
	if err != nil {
		return err
	}
	var sum int64
	for _, a := range allocs {
		if a.Quantity < 0 {
			return fmt.Errorf("%w: saldo negativo %d en ítem %s", domain.ErrConservation, a.Quantity, itemID)
		}
		sum += a.Quantity
	}
	if sum != item.Quantity {
		return fmt.Errorf("%w: ítem %s suma %d, cantidad %d", domain.ErrConservation, itemID, sum, item.Quantity)
	}
	return nil
}

// Move débito + crédito pareados y verificación de conservación.
func (l *Ledger) Move(ctx context.Context, itemID, fromHolderID, toHolderID string, quantity int64) error {
	if _, err := l.Adjust(ctx, itemID, fromHolderID, -quantity); err != nil {
		return err
	}
	if _, err := l.Adjust(ctx, itemID, toHolderID, quantity); err != nil {
		return err
	}
	return l.Verify(ctx, itemID)
}
