package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

var (
	_ repository.StockItemRepository  = (*ItemRepo)(nil)
	_ repository.AllocationRepository = (*AllocationRepo)(nil)
	_ repository.MovementRepository   = (*MovementRepo)(nil)
	_ repository.RequestRepository    = (*RequestRepo)(nil)
	_ repository.UserRepository       = (*UserRepo)(nil)
)

// ItemRepo ítems del catálogo en memoria.
type ItemRepo struct{ session }

// Create persiste el ítem y su asignación central.
func (r *ItemRepo) Create(ctx context.Context, item *entity.StockItem) error {
	if existing, _ := r.GetByID(ctx, item.ID); existing != nil {
		return fmt.Errorf("%w: ítem %s", domain.ErrInvalidInput, item.ID)
	}
	return r.write(func(t *txState) error {
		cp := *item
		t.items[item.ID] = &cp
		if item.Quantity > 0 {
			t.allocs[allocKey{item.ID, entity.CentralPool}] = &entity.Allocation{
				StockItemID: item.ID,
				HolderID:    entity.CentralPool,
				Quantity:    item.Quantity,
				UpdatedAt:   item.CreatedAt,
			}
		}
		return nil
	})
}

// GetByID devuelve nil, nil si no existe.
func (r *ItemRepo) GetByID(_ context.Context, id string) (*entity.StockItem, error) {
	if r.tx != nil {
		if it, ok := r.tx.items[id]; ok {
			cp := *it
			return &cp, nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	it, ok := r.s.items[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

// List ítems ordenados por nombre.
func (r *ItemRepo) List(_ context.Context, limit, offset int) ([]*entity.StockItem, error) {
	r.s.mu.RLock()
	list := make([]*entity.StockItem, 0, len(r.s.items))
	for _, it := range r.s.items {
		cp := *it
		list = append(list, &cp)
	}
	r.s.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return page(list, limit, offset), nil
}

// LockForUpdate toma los locks de los ítems en orden fijo hasta el fin de la transacción.
func (r *ItemRepo) LockForUpdate(ctx context.Context, ids []string) error {
	if r.tx == nil {
		return fmt.Errorf("LockForUpdate requiere una transacción")
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	for _, id := range sorted {
		if err := r.tx.lock(ctx, "item:"+id); err != nil {
			return err
		}
	}
	return nil
}

// AllocationRepo saldos por (ítem, tenedor) en memoria.
type AllocationRepo struct{ session }

// Get devuelve la asignación o una en cero.
func (r *AllocationRepo) Get(_ context.Context, itemID, holderID string) (*entity.Allocation, error) {
	k := allocKey{itemID, holderID}
	if r.tx != nil {
		if a, ok := r.tx.allocs[k]; ok {
			if a == nil {
				return &entity.Allocation{StockItemID: itemID, HolderID: holderID}, nil
			}
			cp := *a
			return &cp, nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if a, ok := r.s.allocs[k]; ok {
		cp := *a
		return &cp, nil
	}
	return &entity.Allocation{StockItemID: itemID, HolderID: holderID}, nil
}

// ListByItem asignaciones del ítem (central primero, luego por tenedor).
func (r *AllocationRepo) ListByItem(_ context.Context, itemID string) ([]*entity.Allocation, error) {
	return r.list(func(k allocKey) bool { return k.itemID == itemID }), nil
}

// ListByHolder asignaciones de un tenedor.
func (r *AllocationRepo) ListByHolder(_ context.Context, holderID string) ([]*entity.Allocation, error) {
	return r.list(func(k allocKey) bool { return k.holderID == holderID }), nil
}

func (r *AllocationRepo) list(match func(allocKey) bool) []*entity.Allocation {
	merged := make(map[allocKey]*entity.Allocation)
	r.s.mu.RLock()
	for k, a := range r.s.allocs {
		if match(k) {
			merged[k] = a
		}
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for k, a := range r.tx.allocs {
			if !match(k) {
				continue
			}
			if a == nil {
				delete(merged, k)
				continue
			}
			merged[k] = a
		}
	}
	out := make([]*entity.Allocation, 0, len(merged))
	for _, a := range merged {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StockItemID != out[j].StockItemID {
			return out[i].StockItemID < out[j].StockItemID
		}
		return out[i].HolderID < out[j].HolderID
	})
	return out
}

// Upsert fija el saldo del tenedor.
func (r *AllocationRepo) Upsert(_ context.Context, a *entity.Allocation) error {
	return r.write(func(t *txState) error {
		cp := *a
		t.allocs[allocKey{a.StockItemID, a.HolderID}] = &cp
		return nil
	})
}

// Delete elimina la fila del tenedor.
func (r *AllocationRepo) Delete(_ context.Context, itemID, holderID string) error {
	return r.write(func(t *txState) error {
		t.allocs[allocKey{itemID, holderID}] = nil
		return nil
	})
}

// MovementRepo libro de movimientos en memoria (solo inserción).
type MovementRepo struct{ session }

// Append asigna un ID creciente y agrega el movimiento.
func (r *MovementRepo) Append(_ context.Context, m *entity.Movement) error {
	return r.write(func(t *txState) error {
		m.ID = r.s.movementSeq.Add(1)
		cp := *m
		t.movements = append(t.movements, &cp)
		return nil
	})
}

// LastForItem último movimiento del ítem (incluye los pendientes de la transacción).
func (r *MovementRepo) LastForItem(_ context.Context, itemID string) (*entity.Movement, error) {
	if r.tx != nil {
		for i := len(r.tx.movements) - 1; i >= 0; i-- {
			if m := r.tx.movements[i]; m.StockItemID == itemID {
				cp := *m
				return &cp, nil
			}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		if m := r.s.movements[i]; m.StockItemID == itemID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

// List movimientos confirmados en orden de auditoría (ID ascendente).
func (r *MovementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	r.s.mu.RLock()
	var out []*entity.Movement
	for _, m := range r.s.movements {
		if f.StockItemID != "" && m.StockItemID != f.StockItemID {
			continue
		}
		if f.HolderID != "" && m.FromHolderID != f.HolderID && m.ToHolderID != f.HolderID {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	r.s.mu.RUnlock()
	return page(out, f.Limit, f.Offset), nil
}

// RequestRepo solicitudes e historial en memoria.
type RequestRepo struct{ session }

// Create persiste una solicitud nueva.
func (r *RequestRepo) Create(ctx context.Context, req *entity.Request) error {
	if existing, _ := r.GetByID(ctx, req.ID); existing != nil {
		return fmt.Errorf("%w: solicitud %s", domain.ErrInvalidInput, req.ID)
	}
	return r.write(func(t *txState) error {
		t.requests[req.ID] = cloneRequest(req)
		return nil
	})
}

// GetByID devuelve la solicitud con su historial, o nil si no existe.
func (r *RequestRepo) GetByID(_ context.Context, id string) (*entity.Request, error) {
	return r.get(id), nil
}

// GetForUpdate bloquea la solicitud hasta el fin de la transacción.
func (r *RequestRepo) GetForUpdate(ctx context.Context, id string) (*entity.Request, error) {
	if r.tx == nil {
		return nil, fmt.Errorf("GetForUpdate requiere una transacción")
	}
	if err := r.tx.lock(ctx, "request:"+id); err != nil {
		return nil, err
	}
	return r.get(id), nil
}

func (r *RequestRepo) get(id string) *entity.Request {
	var base *entity.Request
	if r.tx != nil {
		base = r.tx.requests[id]
	}
	r.s.mu.RLock()
	if base == nil {
		base = r.s.requests[id]
	}
	var history []entity.RequestTransition
	if base != nil {
		history = append(history, r.s.history[id]...)
	}
	r.s.mu.RUnlock()
	if base == nil {
		return nil
	}
	if r.tx != nil {
		for _, tr := range r.tx.transitions {
			if tr.RequestID == id {
				history = append(history, tr)
			}
		}
	}
	out := cloneRequest(base)
	out.History = history
	return out
}

// Update persiste estado, asignado, notas y fecha de decisión.
func (r *RequestRepo) Update(_ context.Context, req *entity.Request) error {
	current := r.get(req.ID)
	if current == nil {
		return fmt.Errorf("%w: solicitud %s", domain.ErrNotFound, req.ID)
	}
	return r.write(func(t *txState) error {
		current.Status = req.Status
		current.AssignedTo = req.AssignedTo
		current.IntermediateApprover = req.IntermediateApprover
		current.DecisionNotes = req.DecisionNotes
		current.DecidedAt = req.DecidedAt
		current.History = nil
		t.requests[req.ID] = current
		return nil
	})
}

// AppendTransitions agrega entradas al historial.
func (r *RequestRepo) AppendTransitions(_ context.Context, ts []entity.RequestTransition) error {
	return r.write(func(t *txState) error {
		t.transitions = append(t.transitions, ts...)
		return nil
	})
}

// List solicitudes confirmadas, más recientes primero.
func (r *RequestRepo) List(_ context.Context, f repository.RequestFilter) ([]*entity.Request, error) {
	r.s.mu.RLock()
	var out []*entity.Request
	for id, req := range r.s.requests {
		if f.AssignedTo != "" && req.AssignedTo != f.AssignedTo {
			continue
		}
		if f.CreatedBy != "" && req.CreatedBy != f.CreatedBy {
			continue
		}
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		cp := cloneRequest(req)
		cp.History = append([]entity.RequestTransition(nil), r.s.history[id]...)
		out = append(out, cp)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset), nil
}

// UserRepo usuarios en memoria.
type UserRepo struct{ session }

// Create persiste un usuario; el email es único (sin distinguir mayúsculas).
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	if existing, _ := r.GetByEmail(ctx, u.Email); existing != nil {
		return domain.ErrEmailAlreadyExists
	}
	return r.write(func(t *txState) error {
		cp := *u
		t.users[u.ID] = &cp
		return nil
	})
}

// GetByID devuelve nil, nil si no existe.
func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	for _, u := range r.all() {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

// GetByEmail devuelve nil, nil si no existe.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.all() {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

// FirstActiveByRole primer usuario activo con el rol, por fecha de alta.
func (r *UserRepo) FirstActiveByRole(_ context.Context, role entity.Role) (*entity.User, error) {
	for _, u := range r.all() {
		if u.Role == role && u.Status == entity.UserStatusActive {
			return u, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) all() []*entity.User {
	merged := make(map[string]*entity.User)
	r.s.mu.RLock()
	for id, u := range r.s.users {
		merged[id] = u
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for id, u := range r.tx.users {
			merged[id] = u
		}
	}
	out := make([]*entity.User, 0, len(merged))
	for _, u := range merged {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// cloneRequest copia la solicitud sin historial (el historial se guarda aparte).
func cloneRequest(r *entity.Request) *entity.Request {
	cp := *r
	cp.Items = append([]entity.RequestItem(nil), r.Items...)
	cp.History = nil
	if r.DecidedAt != nil {
		d := *r.DecidedAt
		cp.DecidedAt = &d
	}
	return &cp
}

func page[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
