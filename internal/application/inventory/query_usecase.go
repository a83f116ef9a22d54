package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/authz"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

// InventoryUseCase alta de ítems y consultas de saldos y movimientos.
type InventoryUseCase struct {
	txRunner TxRunner
	repos    repository.UnitOfWork // repositorios fuera de transacción (lecturas)
}

// NewInventoryUseCase construye el caso de uso.
func NewInventoryUseCase(txRunner TxRunner, repos repository.UnitOfWork) *InventoryUseCase {
	return &InventoryUseCase{txRunner: txRunner, repos: repos}
}

// RegisterItem da de alta un ítem del catálogo con su asignación central.
func (uc *InventoryUseCase) RegisterItem(ctx context.Context, actor entity.Actor, item *entity.StockItem) (*entity.StockItem, error) {
	if !authz.Can(actor.Role, authz.CapManageItems) {
		return nil, fmt.Errorf("%w: el rol %q no puede dar de alta ítems", domain.ErrUnauthorized, actor.Role)
	}
	if item.Name == "" {
		return nil, fmt.Errorf("%w: name es requerido", domain.ErrInvalidInput)
	}
	if item.Quantity < 0 || item.Price.IsNegative() {
		return nil, fmt.Errorf("%w: cantidad y precio no pueden ser negativos", domain.ErrInvalidInput)
	}
	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	err := uc.txRunner.Run(ctx, func(uow repository.UnitOfWork) error {
		return uow.Items.Create(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem obtiene un ítem por ID.
func (uc *InventoryUseCase) GetItem(ctx context.Context, id string) (*entity.StockItem, error) {
	item, err := uc.repos.Items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, id)
	}
	return item, nil
}

// ListItems lista ítems paginados.
func (uc *InventoryUseCase) ListItems(ctx context.Context, limit, offset int) ([]*entity.StockItem, error) {
	return uc.repos.Items.List(ctx, limit, offset)
}

// GetBalance saldo del tenedor para el ítem (0 si no tiene asignación).
func (uc *InventoryUseCase) GetBalance(ctx context.Context, itemID, holderID string) (int64, error) {
	if _, err := uc.GetItem(ctx, itemID); err != nil {
		return 0, err
	}
	if holderID != entity.CentralPool {
		u, err := uc.repos.Users.GetByID(ctx, holderID)
		if err != nil {
			return 0, err
		}
		if u == nil {
			return 0, fmt.Errorf("%w: tenedor %s", domain.ErrNotFound, holderID)
		}
	}
	a, err := uc.repos.Allocations.Get(ctx, itemID, holderID)
	if err != nil {
		return 0, err
	}
	return a.Quantity, nil
}

// ListAllocations asignaciones vigentes del ítem.
func (uc *InventoryUseCase) ListAllocations(ctx context.Context, itemID string) ([]*entity.Allocation, error) {
	if _, err := uc.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return uc.repos.Allocations.ListByItem(ctx, itemID)
}

// ListHoldings asignaciones vigentes de un tenedor en todos los ítems ("" = bodega central).
func (uc *InventoryUseCase) ListHoldings(ctx context.Context, holderID string) ([]*entity.Allocation, error) {
	if holderID != entity.CentralPool {
		u, err := uc.repos.Users.GetByID(ctx, holderID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, fmt.Errorf("%w: tenedor %s", domain.ErrNotFound, holderID)
		}
	}
	return uc.repos.Allocations.ListByHolder(ctx, holderID)
}

// ListMovements movimientos en orden de auditoría (ID ascendente), opcionalmente por ítem.
func (uc *InventoryUseCase) ListMovements(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	if f.Limit <= 0 {
		f.Limit = 100
	}
	return uc.repos.Movements.List(ctx, f)
}
