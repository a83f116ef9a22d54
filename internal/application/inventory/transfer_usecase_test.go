package inventory_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stockflow/internal/application/events"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

func TestTransfer_CentralAKeeper(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	mov, err := f.transfers.Transfer(ctx, keeper, inventory.TransferInput{
		StockItemID: "I", FromHolderID: entity.CentralPool, ToHolderID: "keeper", Quantity: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), mov.ID)
	assert.Equal(t, entity.CentralPool, mov.FromHolderID)
	assert.Equal(t, "keeper", mov.ToHolderID)
	assert.Equal(t, int64(20), mov.Quantity)
	assert.Equal(t, "keeper", mov.MovedBy)

	assert.Equal(t, int64(80), f.balance(t, entity.CentralPool))
	assert.Equal(t, int64(20), f.balance(t, "keeper"))
	f.assertConserved(t)

	published := f.events.OfType(events.StockTransferred)
	require.Len(t, published, 1)
	assert.Equal(t, mov.ID, published[0].Movement.ID)
}

func TestTransfer_CantidadInsuficiente_NoCambiaNada(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()
	_, err := f.transfers.Transfer(ctx, keeper, inventory.TransferInput{StockItemID: "I", ToHolderID: "keeper", Quantity: 20})
	require.NoError(t, err)

	_, err = f.transfers.Transfer(ctx, keeper, inventory.TransferInput{
		StockItemID: "I", FromHolderID: "keeper", ToHolderID: "emp", Quantity: 30,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientQuantity)
	var detail *domain.InsufficientQuantityError
	require.True(t, errors.As(err, &detail))
	assert.Equal(t, int64(20), detail.Available)
	assert.Equal(t, int64(30), detail.Requested)

	assert.Equal(t, int64(20), f.balance(t, "keeper"))
	assert.Equal(t, int64(0), f.balance(t, "emp"))
	movs, err := f.queries.ListMovements(ctx, repository.MovementFilter{StockItemID: "I"})
	require.NoError(t, err)
	assert.Len(t, movs, 1, "el intento fallido no deja movimiento")
	assert.Len(t, f.events.OfType(events.StockTransferred), 1)
	f.assertConserved(t)
}

func TestTransfer_Validaciones(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	tests := []struct {
		name  string
		actor entity.Actor
		in    inventory.TransferInput
		want  error
	}{
		{"cantidad cero", keeper, inventory.TransferInput{StockItemID: "I", ToHolderID: "keeper"}, domain.ErrInvalidInput},
		{"cantidad negativa", keeper, inventory.TransferInput{StockItemID: "I", ToHolderID: "keeper", Quantity: -5}, domain.ErrInvalidInput},
		{"origen igual a destino", keeper, inventory.TransferInput{StockItemID: "I", FromHolderID: "keeper", ToHolderID: "keeper", Quantity: 1}, domain.ErrInvalidInput},
		{"rol sin permiso", emp, inventory.TransferInput{StockItemID: "I", ToHolderID: "emp", Quantity: 1}, domain.ErrUnauthorized},
		{"ítem inexistente", keeper, inventory.TransferInput{StockItemID: "X", ToHolderID: "keeper", Quantity: 1}, domain.ErrNotFound},
		{"tenedor inexistente", keeper, inventory.TransferInput{StockItemID: "I", ToHolderID: "ghost", Quantity: 1}, domain.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.transfers.Transfer(ctx, tc.actor, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, int64(100), f.balance(t, entity.CentralPool))
	assert.Empty(t, f.events.Events())
}

func TestTransfer_IdaYVuelta(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()

	_, err := f.transfers.Transfer(ctx, keeper, inventory.TransferInput{StockItemID: "I", ToHolderID: "emp", Quantity: 10})
	require.NoError(t, err)
	_, err = f.transfers.Transfer(ctx, keeper, inventory.TransferInput{StockItemID: "I", FromHolderID: "emp", Quantity: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(100), f.balance(t, entity.CentralPool))
	assert.Equal(t, int64(0), f.balance(t, "emp"))
	allocs, err := f.queries.ListAllocations(ctx, "I")
	require.NoError(t, err)
	assert.Len(t, allocs, 1, "la fila del tenedor en cero se elimina")

	movs, err := f.queries.ListMovements(ctx, repository.MovementFilter{StockItemID: "I"})
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Less(t, movs[0].ID, movs[1].ID)
	assert.False(t, movs[1].MovedAt.Before(movs[0].MovedAt))
}

func TestTransfer_Concurrentes_UnoGana(t *testing.T) {
	f := newFixture(t, time.Second)
	ctx := context.Background()
	_, err := f.transfers.Transfer(ctx, keeper, inventory.TransferInput{StockItemID: "I", ToHolderID: "keeper", Quantity: 100})
	require.NoError(t, err)

	var ok, insufficient atomic.Int32
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := f.transfers.Transfer(ctx, keeper, inventory.TransferInput{
				StockItemID: "I", FromHolderID: "keeper", ToHolderID: "emp", Quantity: 60,
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientQuantity):
				insufficient.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), insufficient.Load())
	assert.Equal(t, int64(40), f.balance(t, "keeper"))
	assert.Equal(t, int64(60), f.balance(t, "emp"))
	f.assertConserved(t)
}

func TestTransfer_Concurrentes_Conservacion(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	ctx := context.Background()
	holders := []string{entity.CentralPool, "admin", "keeper", "emp"}

	var g errgroup.Group
	for i := 0; i < 40; i++ {
		from := holders[i%len(holders)]
		to := holders[(i+1)%len(holders)]
		qty := int64(i%7 + 1)
		g.Go(func() error {
			_, err := f.transfers.Transfer(ctx, admin, inventory.TransferInput{
				StockItemID: "I", FromHolderID: from, ToHolderID: to, Quantity: qty,
			})
			if err != nil && !errors.Is(err, domain.ErrInsufficientQuantity) {
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	f.assertConserved(t)

	movs, err := f.queries.ListMovements(ctx, repository.MovementFilter{StockItemID: "I", Limit: 100})
	require.NoError(t, err)
	assert.Len(t, movs, len(f.events.OfType(events.StockTransferred)))
	for i := 1; i < len(movs); i++ {
		assert.Less(t, movs[i-1].ID, movs[i].ID)
	}
}

func TestTransfer_LockOcupado_Unavailable(t *testing.T) {
	f := newFixture(t, 5*time.Millisecond)
	ctx := context.Background()

	locked := make(chan struct{})
	release := make(chan struct{})
	holder := make(chan error, 1)
	go func() {
		holder <- f.store.Run(ctx, func(uow repository.UnitOfWork) error {
			if err := uow.Items.LockForUpdate(ctx, []string{"I"}); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	_, err := f.transfers.Transfer(ctx, keeper, inventory.TransferInput{StockItemID: "I", ToHolderID: "keeper", Quantity: 5})
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	close(release)
	require.NoError(t, <-holder)
	assert.Equal(t, int64(100), f.balance(t, entity.CentralPool))

	_, err = f.transfers.Transfer(ctx, keeper, inventory.TransferInput{StockItemID: "I", ToHolderID: "keeper", Quantity: 5})
	assert.NoError(t, err, "liberado el lock la transferencia procede")
}
