package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

// Recorder agrega movimientos al libro. No toca saldos: el débito/crédito lo hace el Ledger
// en la misma unidad de trabajo.
type Recorder struct {
	movs repository.MovementRepository
	now  func() time.Time
}

// NewRecorder construye el registrador sobre el repositorio de la transacción.
func NewRecorder(movs repository.MovementRepository) *Recorder {
	return &Recorder{movs: movs, now: time.Now}
}

// Record agrega un movimiento inmutable. MovedAt nunca es anterior al último movimiento del ítem.
func (r *Recorder) Record(ctx context.Context, itemID, fromHolderID, toHolderID string, quantity int64, actor, notes string) (*entity.Movement, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: cantidad %d", domain.ErrInvalidInput, quantity)
	}
	movedAt := r.now().UTC()
	last, err := r.movs.LastForItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if last != nil && movedAt.Before(last.MovedAt) {
		movedAt = last.MovedAt
	}
	m := &entity.Movement{
		StockItemID:  itemID,
		FromHolderID: fromHolderID,
		ToHolderID:   toHolderID,
		Quantity:     quantity,
		MovedBy:      actor,
		MovedAt:      movedAt,
		Notes:        notes,
	}
	if err := r.movs.Append(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}
