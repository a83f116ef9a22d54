package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow/internal/application/events"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/infrastructure/memory"
	"github.com/jhoicas/stockflow/pkg/logger"
)

var (
	admin  = entity.Actor{UserID: "admin", Role: entity.RoleAdmin}
	keeper = entity.Actor{UserID: "keeper", Role: entity.RoleStockKeeper}
	emp    = entity.Actor{UserID: "emp", Role: entity.RoleEmployee}
)

type fixture struct {
	store     *memory.Store
	transfers *inventory.TransferUseCase
	queries   *inventory.InventoryUseCase
	events    *events.Recorder
}

func testRetry() inventory.RetryConfig {
	return inventory.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

// newFixture almacén en memoria con admin, keeper y emp, y el ítem "I" con 100 unidades en central.
func newFixture(t *testing.T, lockTimeout time.Duration) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore(lockTimeout)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, a := range []entity.Actor{admin, keeper, emp} {
		require.NoError(t, store.UnitOfWork().Users.Create(ctx, &entity.User{
			ID:        a.UserID,
			Email:     a.UserID + "@test.local",
			Name:      a.UserID,
			Role:      a.Role,
			Status:    entity.UserStatusActive,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rec := &events.Recorder{}
	bus := events.NewBus()
	bus.Subscribe(rec.Handle)

	f := &fixture{
		store:     store,
		transfers: inventory.NewTransferUseCase(store, bus, testRetry(), logger.Nop()),
		queries:   inventory.NewInventoryUseCase(store, store.UnitOfWork()),
		events:    rec,
	}
	_, err := f.queries.RegisterItem(ctx, admin, &entity.StockItem{ID: "I", Name: "Guantes", Quantity: 100})
	require.NoError(t, err)
	return f
}

func (f *fixture) balance(t *testing.T, holderID string) int64 {
	t.Helper()
	q, err := f.queries.GetBalance(context.Background(), "I", holderID)
	require.NoError(t, err)
	return q
}

// assertConserved verifica que la suma de asignaciones sea la cantidad del ítem.
func (f *fixture) assertConserved(t *testing.T) {
	t.Helper()
	allocs, err := f.queries.ListAllocations(context.Background(), "I")
	require.NoError(t, err)
	var sum int64
	for _, a := range allocs {
		require.Positive(t, a.Quantity, "no se guardan saldos en cero ni negativos")
		sum += a.Quantity
	}
	require.Equal(t, int64(100), sum)
}
