package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ repository.StockItemRepository = (*StockItemRepo)(nil)

// StockItemRepo implementación del puerto StockItemRepository sobre PostgreSQL (usable con pool o tx).
type StockItemRepo struct {
	q Querier
}

// NewStockItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockItemRepository(q Querier) *StockItemRepo {
	return &StockItemRepo{q: q}
}

const stockItemColumns = `id, name, category_id, specialty_id, price, expiry, unique_number, notes, quantity, created_at, updated_at`

// Create persiste el ítem y, si tiene cantidad, su asignación en la bodega central.
// Usar dentro de una tx para que ambas filas se confirmen juntas.
func (r *StockItemRepo) Create(ctx context.Context, item *entity.StockItem) error {
	query := `
		INSERT INTO stock_items (` + stockItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.Name, item.CategoryID, item.SpecialtyID, item.Price, item.Expiry,
		item.UniqueNumber, item.Notes, item.Quantity, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: ítem duplicado", domain.ErrInvalidInput)
		}
		return fmt.Errorf("insert stock item: %w", err)
	}
	if item.Quantity == 0 {
		return nil
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO allocations (stock_item_id, holder_id, quantity, updated_at)
		VALUES ($1, NULL, $2, $3)`, item.ID, item.Quantity, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert central allocation: %w", err)
	}
	return nil
}

// GetByID obtiene un ítem por ID (nil, nil si no existe).
func (r *StockItemRepo) GetByID(ctx context.Context, id string) (*entity.StockItem, error) {
	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE id = $1`
	it, err := scanStockItem(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock item: %w", err)
	}
	return it, nil
}

// List lista ítems ordenados por nombre.
func (r *StockItemRepo) List(ctx context.Context, limit, offset int) ([]*entity.StockItem, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + stockItemColumns + ` FROM stock_items ORDER BY name, id LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockItem
	for rows.Next() {
		it, err := scanStockItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

// LockForUpdate bloquea las filas de los ítems (SELECT FOR UPDATE) en orden de id para
// evitar deadlocks entre transacciones que tocan varios ítems.
func (r *StockItemRepo) LockForUpdate(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := r.q.Query(ctx, `SELECT id FROM stock_items WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return fmt.Errorf("lock stock items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock stock items: %w", err)
	}
	return nil
}

func scanStockItem(row pgx.Row) (*entity.StockItem, error) {
	var it entity.StockItem
	err := row.Scan(&it.ID, &it.Name, &it.CategoryID, &it.SpecialtyID, &it.Price, &it.Expiry,
		&it.UniqueNumber, &it.Notes, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}
