package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx).
// La tabla rechaza UPDATE/DELETE mediante trigger.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, stock_item_id, from_holder_id, to_holder_id, quantity, moved_by, moved_at, notes`

// Append persiste un movimiento y asigna su ID (identity creciente).
func (r *MovementRepo) Append(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO movements (stock_item_id, from_holder_id, to_holder_id, quantity, moved_by, moved_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		m.StockItemID, nullableHolder(m.FromHolderID), nullableHolder(m.ToHolderID),
		m.Quantity, m.MovedBy, m.MovedAt, m.Notes,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

// LastForItem último movimiento del ítem (nil, nil si no hay).
func (r *MovementRepo) LastForItem(ctx context.Context, itemID string) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE stock_item_id = $1 ORDER BY id DESC LIMIT 1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last movement: %w", err)
	}
	return m, nil
}

// List lista movimientos en orden de auditoría (id ascendente).
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE 1=1`
	var args []any
	pos := 1
	if f.StockItemID != "" {
		query += fmt.Sprintf(" AND stock_item_id = $%d", pos)
		args = append(args, f.StockItemID)
		pos++
	}
	if f.HolderID != "" {
		query += fmt.Sprintf(" AND (from_holder_id = $%d OR to_holder_id = $%d)", pos, pos)
		args = append(args, f.HolderID)
		pos++
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	var from, to *string
	if err := row.Scan(&m.ID, &m.StockItemID, &from, &to, &m.Quantity, &m.MovedBy, &m.MovedAt, &m.Notes); err != nil {
		return nil, err
	}
	m.FromHolderID = holderFromNull(from)
	m.ToHolderID = holderFromNull(to)
	return &m, nil
}
