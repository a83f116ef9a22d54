package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ repository.AllocationRepository = (*AllocationRepo)(nil)

// AllocationRepo implementación de AllocationRepository sobre PostgreSQL (usable con pool o tx).
// holder_id NULL = bodega central; la unicidad (ítem, tenedor) usa NULLS NOT DISTINCT.
type AllocationRepo struct {
	q Querier
}

// NewAllocationRepository construye el adaptador de asignaciones. Pasar pool o tx (Querier).
func NewAllocationRepository(q Querier) *AllocationRepo {
	return &AllocationRepo{q: q}
}

// Get obtiene el saldo del tenedor; si no hay fila devuelve una asignación en cero.
func (r *AllocationRepo) Get(ctx context.Context, itemID, holderID string) (*entity.Allocation, error) {
	query := `
		SELECT stock_item_id, holder_id, quantity, updated_at
		FROM allocations WHERE stock_item_id = $1 AND holder_id IS NOT DISTINCT FROM $2::text`
	a, err := scanAllocation(r.q.QueryRow(ctx, query, itemID, nullableHolder(holderID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.Allocation{StockItemID: itemID, HolderID: holderID}, nil
		}
		return nil, fmt.Errorf("get allocation: %w", err)
	}
	return a, nil
}

// ListByItem asignaciones del ítem (central primero).
func (r *AllocationRepo) ListByItem(ctx context.Context, itemID string) ([]*entity.Allocation, error) {
	return r.list(ctx, `
		SELECT stock_item_id, holder_id, quantity, updated_at
		FROM allocations WHERE stock_item_id = $1 ORDER BY holder_id NULLS FIRST`, itemID)
}

// ListByHolder asignaciones de un tenedor ("" = bodega central).
func (r *AllocationRepo) ListByHolder(ctx context.Context, holderID string) ([]*entity.Allocation, error) {
	return r.list(ctx, `
		SELECT stock_item_id, holder_id, quantity, updated_at
		FROM allocations WHERE holder_id IS NOT DISTINCT FROM $1::text ORDER BY stock_item_id`, nullableHolder(holderID))
}

func (r *AllocationRepo) list(ctx context.Context, query string, arg any) ([]*entity.Allocation, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()
	var list []*entity.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Upsert inserta o actualiza el saldo (por ítem y tenedor).
func (r *AllocationRepo) Upsert(ctx context.Context, a *entity.Allocation) error {
	query := `
		INSERT INTO allocations (stock_item_id, holder_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT ON CONSTRAINT allocations_item_holder_key
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
	_, err := r.q.Exec(ctx, query, a.StockItemID, nullableHolder(a.HolderID), a.Quantity)
	if err != nil {
		return fmt.Errorf("upsert allocation: %w", err)
	}
	return nil
}

// Delete elimina la fila del tenedor (saldo en cero).
func (r *AllocationRepo) Delete(ctx context.Context, itemID, holderID string) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM allocations WHERE stock_item_id = $1 AND holder_id IS NOT DISTINCT FROM $2::text`,
		itemID, nullableHolder(holderID))
	if err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	return nil
}

func scanAllocation(row pgx.Row) (*entity.Allocation, error) {
	var a entity.Allocation
	var holder *string
	if err := row.Scan(&a.StockItemID, &holder, &a.Quantity, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.HolderID = holderFromNull(holder)
	return &a, nil
}
