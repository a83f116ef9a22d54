package workflow_test

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
	"github.com/jhoicas/stockflow/internal/application/workflow"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	"github.com/jhoicas/stockflow/internal/infrastructure/memory"
	"github.com/jhoicas/stockflow/pkg/logger"
)

var (
	admin   = entity.Actor{UserID: "admin", Role: entity.RoleAdmin}
	pm      = entity.Actor{UserID: "pm", Role: entity.RoleProductManager}
	keeper  = entity.Actor{UserID: "keeper", Role: entity.RoleStockKeeper}
	keeper2 = entity.Actor{UserID: "keeper2", Role: entity.RoleStockKeeper}
	emp     = entity.Actor{UserID: "emp", Role: entity.RoleEmployee}
)

type fixture struct {
	requests  *workflow.RequestUseCase
	transfers *inventory.TransferUseCase
	queries   *inventory.InventoryUseCase
	events    *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore(2 * time.Second)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, a := range []entity.Actor{admin, pm, keeper, keeper2, emp} {
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
	retry := inventory.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	transfers := inventory.NewTransferUseCase(store, bus, retry, logger.Nop())

	f := &fixture{
		requests:  workflow.NewRequestUseCase(store, store.UnitOfWork(), transfers, bus, retry, logger.Nop()),
		transfers: transfers,
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

func (f *fixture) movements(t *testing.T) []*entity.Movement {
	t.Helper()
	list, err := f.queries.ListMovements(context.Background(), repository.MovementFilter{StockItemID: "I"})
	require.NoError(t, err)
	return list
}

func statuses(r *entity.Request) []entity.RequestStatus {
	out := make([]entity.RequestStatus, 0, len(r.History))
	for _, tr := range r.History {
		out = append(out, tr.To)
	}
	return out
}

func prepareOrder(qty int64) workflow.CreateRequestInput {
	return workflow.CreateRequestInput{
		Type:  entity.RequestTypePrepareOrder,
		Title: "Pedido quirófano",
		Items: []entity.RequestItem{{StockItemID: "I", Quantity: qty}},
	}
}

func TestPrepareOrder_AprobacionCompletaYTransfiere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.CreateRequest(ctx, emp, prepareOrder(20))
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPending, req.Status)
	assert.Equal(t, "keeper", req.AssignedTo, "primer bodeguero activo")

	done, err := f.requests.ApproveRequest(ctx, keeper, req.ID, "listo")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusCompleted, done.Status)
	require.NotNil(t, done.DecidedAt)
	assert.Equal(t, "listo", done.DecisionNotes)

	assert.Equal(t, int64(80), f.balance(t, entity.CentralPool))
	assert.Equal(t, int64(20), f.balance(t, "keeper"))

	movs := f.movements(t)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.CentralPool, movs[0].FromHolderID)
	assert.Equal(t, "keeper", movs[0].ToHolderID)
	assert.Equal(t, int64(20), movs[0].Quantity)
	assert.Equal(t, "keeper", movs[0].MovedBy)

	stored, err := f.requests.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, []entity.RequestStatus{
		entity.RequestStatusPending,
		entity.RequestStatusApproved,
		entity.RequestStatusCompleted,
	}, statuses(stored))

	assert.Len(t, f.events.OfType(events.RequestCreated), 1)
	assert.Len(t, f.events.OfType(events.RequestApproved), 1)
	assert.Len(t, f.events.OfType(events.StockTransferred), 1)
}

func TestTerminal_NoAdmiteMasDecisiones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.CreateRequest(ctx, emp, prepareOrder(5))
	require.NoError(t, err)
	_, err = f.requests.ApproveRequest(ctx, keeper, req.ID, "")
	require.NoError(t, err)

	_, err = f.requests.ApproveRequest(ctx, keeper, req.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.requests.DenyRequest(ctx, keeper, req.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.requests.ApproveRequest(ctx, emp, req.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "terminal gana sobre asignado")

	assert.Len(t, f.movements(t), 1, "sin transferencias duplicadas")
	assert.Equal(t, int64(95), f.balance(t, entity.CentralPool))
}

func TestApprove_SoloElAsignado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.CreateRequest(ctx, emp, prepareOrder(5))
	require.NoError(t, err)

	for _, a := range []entity.Actor{keeper2, emp, pm, admin} {
		_, err := f.requests.ApproveRequest(ctx, a, req.ID, "")
		assert.ErrorIs(t, err, domain.ErrUnauthorized, a.UserID)
		_, err = f.requests.DenyRequest(ctx, a, req.ID, "")
		assert.ErrorIs(t, err, domain.ErrUnauthorized, a.UserID)
	}

	stored, err := f.requests.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPending, stored.Status)
	assert.Empty(t, f.movements(t))
}

func TestInventoryShare_DosEtapas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.transfers.Transfer(ctx, admin, inventory.TransferInput{
		StockItemID: "I", FromHolderID: entity.CentralPool, ToHolderID: "pm", Quantity: 30,
	})
	require.NoError(t, err)

	req, err := f.requests.CreateRequest(ctx, emp, workflow.CreateRequestInput{
		Type:          entity.RequestTypeInventoryShare,
		Title:         "Compartir guantes",
		Items:         []entity.RequestItem{{StockItemID: "I", Quantity: 10}},
		FinalAssignee: "keeper2",
	})
	require.NoError(t, err)
	assert.Equal(t, "pm", req.AssignedTo)
	assert.Equal(t, "keeper2", req.FinalAssignee)

	mid, err := f.requests.ApproveRequest(ctx, pm, req.ID, "ok pm")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPendingSecondary, mid.Status)
	assert.Equal(t, "keeper2", mid.AssignedTo)
	assert.Equal(t, "pm", mid.IntermediateApprover)
	assert.Equal(t, int64(30), f.balance(t, "pm"), "la primera etapa no mueve stock")

	_, err = f.requests.ApproveRequest(ctx, pm, req.ID, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "la segunda etapa es del asignado final")

	done, err := f.requests.ApproveRequest(ctx, keeper2, req.ID, "ok bodega")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusCompleted, done.Status)
	assert.Equal(t, int64(20), f.balance(t, "pm"))
	assert.Equal(t, int64(10), f.balance(t, "keeper2"))
	assert.Equal(t, int64(70), f.balance(t, entity.CentralPool))

	stored, err := f.requests.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, []entity.RequestStatus{
		entity.RequestStatusPending,
		entity.RequestStatusPendingSecondary,
		entity.RequestStatusApproved,
		entity.RequestStatusCompleted,
	}, statuses(stored))
}

func TestInventoryShare_SinAsignadoFinal(t *testing.T) {
	f := newFixture(t)
	_, err := f.requests.CreateRequest(context.Background(), emp, workflow.CreateRequestInput{
		Type:  entity.RequestTypeInventoryShare,
		Title: "Compartir",
		Items: []entity.RequestItem{{StockItemID: "I", Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestInventoryShare_AprobadorSinStockQuedaPendiente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.CreateRequest(ctx, emp, workflow.CreateRequestInput{
		Type:          entity.RequestTypeInventoryShare,
		Title:         "Compartir",
		Items:         []entity.RequestItem{{StockItemID: "I", Quantity: 5}},
		FinalAssignee: "keeper",
	})
	require.NoError(t, err)
	_, err = f.requests.ApproveRequest(ctx, pm, req.ID, "")
	require.NoError(t, err)

	_, err = f.requests.ApproveRequest(ctx, keeper, req.ID, "")
	require.ErrorIs(t, err, domain.ErrInsufficientQuantity)

	stored, err := f.requests.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPendingSecondary, stored.Status)
	assert.Equal(t, "keeper", stored.AssignedTo)
}

func TestApprove_FalloDeCompletitudRevierteTodo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.CreateRequest(ctx, emp, prepareOrder(150))
	require.NoError(t, err)

	_, err = f.requests.ApproveRequest(ctx, keeper, req.ID, "")
	var detail *domain.InsufficientQuantityError
	require.True(t, errors.As(err, &detail))
	assert.Equal(t, int64(100), detail.Available)
	assert.Equal(t, int64(150), detail.Requested)

	stored, err := f.requests.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPending, stored.Status)
	assert.Nil(t, stored.DecidedAt)
	assert.Len(t, stored.History, 1)
	assert.Empty(t, f.movements(t))
	assert.Equal(t, int64(100), f.balance(t, entity.CentralPool))
	assert.Empty(t, f.events.OfType(events.RequestApproved))
}

func TestApprove_ItemsTextoLibreNoTransfieren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.CreateRequest(ctx, emp, workflow.CreateRequestInput{
		Type:  entity.RequestTypePrepareOrder,
		Title: "Pedido especial",
		Items: []entity.RequestItem{
			{ItemName: "Bisturí desechable", Quantity: 3},
			{StockItemID: "I", Quantity: 2},
		},
	})
	require.NoError(t, err)

	done, err := f.requests.ApproveRequest(ctx, keeper, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusCompleted, done.Status)
	require.Len(t, f.movements(t), 1)
	assert.Equal(t, int64(2), f.balance(t, "keeper"))
}

func TestDeny(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.CreateRequest(ctx, emp, prepareOrder(5))
	require.NoError(t, err)

	denied, err := f.requests.DenyRequest(ctx, keeper, req.ID, "sin presupuesto")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusDenied, denied.Status)
	assert.Equal(t, "sin presupuesto", denied.DecisionNotes)
	require.NotNil(t, denied.DecidedAt)
	assert.Empty(t, f.movements(t))
	assert.Len(t, f.events.OfType(events.RequestDenied), 1)

	_, err = f.requests.ApproveRequest(ctx, keeper, req.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDeny_DesdeSegundaEtapa(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.CreateRequest(ctx, emp, workflow.CreateRequestInput{
		Type:          entity.RequestTypeInventoryShare,
		Title:         "Compartir",
		Items:         []entity.RequestItem{{StockItemID: "I", Quantity: 1}},
		FinalAssignee: "keeper",
	})
	require.NoError(t, err)
	_, err = f.requests.ApproveRequest(ctx, pm, req.ID, "")
	require.NoError(t, err)

	denied, err := f.requests.DenyRequest(ctx, keeper, req.ID, "no")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusDenied, denied.Status)
}

func TestReceiveInventory_TransfiereAlSolicitante(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.CreateRequest(ctx, emp, workflow.CreateRequestInput{
		Type:  entity.RequestTypeReceiveInventory,
		Title: "Recibir guantes",
		Items: []entity.RequestItem{{StockItemID: "I", Quantity: 7}},
	})
	require.NoError(t, err)

	_, err = f.requests.ApproveRequest(ctx, keeper, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.balance(t, "emp"))
	assert.Equal(t, int64(93), f.balance(t, entity.CentralPool))
}

func TestCreateRequest_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		actor entity.Actor
		in    workflow.CreateRequestInput
		want  error
	}{
		{"tipo desconocido", emp, workflow.CreateRequestInput{Type: "gift", Title: "x", Items: []entity.RequestItem{{StockItemID: "I", Quantity: 1}}}, domain.ErrInvalidInput},
		{"sin ítems", emp, workflow.CreateRequestInput{Type: entity.RequestTypePrepareOrder, Title: "x"}, domain.ErrInvalidInput},
		{"cantidad cero", emp, prepareOrder(0), domain.ErrInvalidInput},
		{"sin título", emp, workflow.CreateRequestInput{Type: entity.RequestTypePrepareOrder, Items: []entity.RequestItem{{StockItemID: "I", Quantity: 1}}}, domain.ErrInvalidInput},
		{"ítem inexistente", emp, workflow.CreateRequestInput{Type: entity.RequestTypePrepareOrder, Title: "x", Items: []entity.RequestItem{{StockItemID: "X", Quantity: 1}}}, domain.ErrNotFound},
		{"asignado con rol incorrecto", emp, workflow.CreateRequestInput{Type: entity.RequestTypePrepareOrder, Title: "x", AssignedTo: "emp", Items: []entity.RequestItem{{StockItemID: "I", Quantity: 1}}}, domain.ErrInvalidInput},
		{"asignado inexistente", emp, workflow.CreateRequestInput{Type: entity.RequestTypePrepareOrder, Title: "x", AssignedTo: "ghost", Items: []entity.RequestItem{{StockItemID: "I", Quantity: 1}}}, domain.ErrNotFound},
		{"rol sin permiso", keeper, workflow.CreateRequestInput{Type: entity.RequestTypeInventoryShare, Title: "x", FinalAssignee: "keeper2", Items: []entity.RequestItem{{StockItemID: "I", Quantity: 1}}}, domain.ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.requests.CreateRequest(ctx, tc.actor, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	list, err := f.requests.ListRequests(ctx, repository.RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestApprove_ConcurrenteSoloUnaGana(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.requests.CreateRequest(ctx, emp, prepareOrder(10))
	require.NoError(t, err)

	var ok, invalid atomic.Int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := f.requests.ApproveRequest(ctx, keeper, req.ID, "")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInvalidTransition):
				invalid.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(7), invalid.Load())
	assert.Len(t, f.movements(t), 1)
	assert.Equal(t, int64(10), f.balance(t, "keeper"))
}

func TestListRequests_Filtros(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.requests.CreateRequest(ctx, emp, prepareOrder(1))
	require.NoError(t, err)
	in := prepareOrder(1)
	in.AssignedTo = "keeper2"
	b, err := f.requests.CreateRequest(ctx, emp, in)
	require.NoError(t, err)
	_, err = f.requests.DenyRequest(ctx, keeper2, b.ID, "")
	require.NoError(t, err)

	mine, err := f.requests.ListRequests(ctx, repository.RequestFilter{AssignedTo: "keeper"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)

	denied, err := f.requests.ListRequests(ctx, repository.RequestFilter{Status: entity.RequestStatusDenied})
	require.NoError(t, err)
	require.Len(t, denied, 1)
	assert.Equal(t, b.ID, denied[0].ID)

	byEmp, err := f.requests.ListRequests(ctx, repository.RequestFilter{CreatedBy: "emp"})
	require.NoError(t, err)
	assert.Len(t, byEmp, 2)

	_, err = f.requests.GetRequest(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
