package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var _ repository.RequestRepository = (*RequestRepo)(nil)

// RequestRepo solicitudes, sus líneas (request_items) y su historial (request_transitions).
type RequestRepo struct {
	q Querier
}

// NewRequestRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRequestRepository(q Querier) *RequestRepo {
	return &RequestRepo{q: q}
}

const requestColumns = `id, type, title, description, created_by, status, assigned_to,
	final_assignee, intermediate_approver, decision_notes, created_at, decided_at`

// Create inserta la cabecera y las líneas. Usar dentro de una tx.
func (r *RequestRepo) Create(ctx context.Context, req *entity.Request) error {
	query := `
		INSERT INTO requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		req.ID, string(req.Type), req.Title, req.Description, req.CreatedBy, string(req.Status),
		req.AssignedTo, nullableHolder(req.FinalAssignee), nullableHolder(req.IntermediateApprover),
		req.DecisionNotes, req.CreatedAt, req.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	for i, it := range req.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO request_items (request_id, position, stock_item_id, item_name, quantity, notes)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			req.ID, i, nullableHolder(it.StockItemID), it.ItemName, it.Quantity, it.Notes,
		)
		if err != nil {
			return fmt.Errorf("insert request item: %w", err)
		}
	}
	return nil
}

// GetByID obtiene la solicitud con líneas e historial (nil, nil si no existe).
func (r *RequestRepo) GetByID(ctx context.Context, id string) (*entity.Request, error) {
	return r.get(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
}

// GetForUpdate como GetByID pero bloquea la fila hasta el fin de la transacción.
func (r *RequestRepo) GetForUpdate(ctx context.Context, id string) (*entity.Request, error) {
	return r.get(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *RequestRepo) get(ctx context.Context, query, id string) (*entity.Request, error) {
	req, err := scanRequest(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	if err := r.loadItems(ctx, req); err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Update persiste estado, asignado, aprobador intermedio, notas y fecha de decisión.
func (r *RequestRepo) Update(ctx context.Context, req *entity.Request) error {
	query := `
		UPDATE requests SET status = $2, assigned_to = $3, intermediate_approver = $4,
			decision_notes = $5, decided_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		req.ID, string(req.Status), req.AssignedTo, nullableHolder(req.IntermediateApprover),
		req.DecisionNotes, req.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update request: no existe %s", req.ID)
	}
	return nil
}

// AppendTransitions agrega entradas al historial.
func (r *RequestRepo) AppendTransitions(ctx context.Context, ts []entity.RequestTransition) error {
	for _, t := range ts {
		_, err := r.q.Exec(ctx, `
			INSERT INTO request_transitions (request_id, from_status, to_status, actor, notes, at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			t.RequestID, string(t.From), string(t.To), t.Actor, t.Notes, t.At,
		)
		if err != nil {
			return fmt.Errorf("insert request transition: %w", err)
		}
	}
	return nil
}

// List lista solicitudes (más recientes primero) con líneas; el historial solo se carga en GetByID.
func (r *RequestRepo) List(ctx context.Context, f repository.RequestFilter) ([]*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE 1=1`
	var args []any
	pos := 1
	if f.AssignedTo != "" {
		query += fmt.Sprintf(" AND assigned_to = $%d", pos)
		args = append(args, f.AssignedTo)
		pos++
	}
	if f.CreatedBy != "" {
		query += fmt.Sprintf(" AND created_by = $%d", pos)
		args = append(args, f.CreatedBy)
		pos++
	}
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", pos)
		args = append(args, string(f.Status))
		pos++
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	var list []*entity.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan request: %w", err)
		}
		list = append(list, req)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	// Las líneas se cargan después de cerrar el cursor: una tx no admite dos consultas abiertas.
	for _, req := range list {
		if err := r.loadItems(ctx, req); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *RequestRepo) loadItems(ctx context.Context, req *entity.Request) error {
	rows, err := r.q.Query(ctx, `
		SELECT stock_item_id, item_name, quantity, notes
		FROM request_items WHERE request_id = $1 ORDER BY position`, req.ID)
	if err != nil {
		return fmt.Errorf("list request items: %w", err)
	}
	defer rows.Close()
	req.Items = nil
	for rows.Next() {
		var it entity.RequestItem
		var stockItemID *string
		if err := rows.Scan(&stockItemID, &it.ItemName, &it.Quantity, &it.Notes); err != nil {
			return fmt.Errorf("scan request item: %w", err)
		}
		it.StockItemID = holderFromNull(stockItemID)
		req.Items = append(req.Items, it)
	}
	return rows.Err()
}

func (r *RequestRepo) loadHistory(ctx context.Context, req *entity.Request) error {
	rows, err := r.q.Query(ctx, `
		SELECT from_status, to_status, actor, notes, at
		FROM request_transitions WHERE request_id = $1 ORDER BY id`, req.ID)
	if err != nil {
		return fmt.Errorf("list request transitions: %w", err)
	}
	defer rows.Close()
	req.History = nil
	for rows.Next() {
		t := entity.RequestTransition{RequestID: req.ID}
		var from, to string
		if err := rows.Scan(&from, &to, &t.Actor, &t.Notes, &t.At); err != nil {
			return fmt.Errorf("scan request transition: %w", err)
		}
		t.From = entity.RequestStatus(from)
		t.To = entity.RequestStatus(to)
		req.History = append(req.History, t)
	}
	return rows.Err()
}

func scanRequest(row pgx.Row) (*entity.Request, error) {
	var req entity.Request
	var typ, status string
	var finalAssignee, intermediate *string
	err := row.Scan(&req.ID, &typ, &req.Title, &req.Description, &req.CreatedBy, &status,
		&req.AssignedTo, &finalAssignee, &intermediate, &req.DecisionNotes, &req.CreatedAt, &req.DecidedAt)
	if err != nil {
		return nil, err
	}
	req.Type = entity.RequestType(typ)
	req.Status = entity.RequestStatus(status)
	req.FinalAssignee = holderFromNull(finalAssignee)
	req.IntermediateApprover = holderFromNull(intermediate)
	return &req, nil
}
