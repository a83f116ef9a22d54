package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stockflow/internal/application/events"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/authz"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	"github.com/jhoicas/stockflow/pkg/logger"
)

// TransferUseCase ejecuta transferencias de un ítem entre tenedores como unidad atómica:
// bloqueo del ítem, débito, crédito, verificación de conservación y registro del movimiento.
type TransferUseCase struct {
	txRunner  TxRunner
	publisher events.Publisher
	retry     RetryConfig
	log       *logger.Logger
}

// NewTransferUseCase construye el caso de uso.
func NewTransferUseCase(txRunner TxRunner, publisher events.Publisher, retry RetryConfig, log *logger.Logger) *TransferUseCase {
	return &TransferUseCase{
		txRunner:  txRunner,
		publisher: publisher,
		retry:     retry,
		log:       log.Component("transfer"),
	}
}

// TransferInput entrada para una transferencia. Holder vacío = bodega central.
type TransferInput struct {
	StockItemID  string
	FromHolderID string
	ToHolderID   string
	Quantity     int64
	Notes        string
}

// Validate verifica las precondiciones que no dependen del almacén.
func (in TransferInput) Validate() error {
	if in.StockItemID == "" {
		return fmt.Errorf("%w: stock_item_id es requerido", domain.ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: la cantidad debe ser positiva", domain.ErrInvalidInput)
	}
	if in.FromHolderID == in.ToHolderID {
		return fmt.Errorf("%w: origen y destino iguales", domain.ErrInvalidInput)
	}
	return nil
}

// Transfer bloquea el ítem (sección crítica por ítem), aplica la transferencia y hace Commit o Rollback.
// La contención transitoria se reintenta con backoff; al agotarse devuelve domain.ErrUnavailable.
func (uc *TransferUseCase) Transfer(ctx context.Context, actor entity.Actor, in TransferInput) (*entity.Movement, error) {
	if !authz.Can(actor.Role, authz.CapMoveStock) {
		return nil, fmt.Errorf("%w: el rol %q no puede mover stock", domain.ErrUnauthorized, actor.Role)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var mov *entity.Movement
	err := RunWithRetry(ctx, uc.retry, func(ctx context.Context) error {
		return uc.txRunner.Run(ctx, func(uow repository.UnitOfWork) error {
			if err := uow.Items.LockForUpdate(ctx, []string{in.StockItemID}); err != nil {
				return err
			}
			m, err := uc.ExecuteInTx(ctx, uow, in, actor.UserID)
			if err != nil {
				return err
			}
			mov = m
			return nil
		})
	})
	if err != nil {
		uc.log.Warn().Err(err).
			Str("stock_item_id", in.StockItemID).
			Int64("quantity", in.Quantity).
			Msg("transferencia rechazada")
		return nil, err
	}

	uc.log.Info().
		Int64("movement_id", mov.ID).
		Str("stock_item_id", mov.StockItemID).
		Str("from", mov.FromHolderID).
		Str("to", mov.ToHolderID).
		Int64("quantity", mov.Quantity).
		Msg("transferencia registrada")
	uc.publisher.Publish(ctx, events.Event{Type: events.StockTransferred, Actor: actor.UserID, Movement: mov})
	return mov, nil
}

// ExecuteInTx aplica la transferencia con los repositorios de una transacción abierta por el llamador,
// que ya debe tener el ítem bloqueado. No publica eventos: eso ocurre tras el Commit.
func (uc *TransferUseCase) ExecuteInTx(ctx context.Context, uow repository.UnitOfWork, in TransferInput, actorID string) (*entity.Movement, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	item, err := uow.Items.GetByID(ctx, in.StockItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: ítem %s", domain.ErrNotFound, in.StockItemID)
	}
	for _, holderID := range []string{in.FromHolderID, in.ToHolderID} {
		if holderID == entity.CentralPool {
			continue
		}
		u, err := uow.Users.GetByID(ctx, holderID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, fmt.Errorf("%w: tenedor %s", domain.ErrNotFound, holderID)
		}
	}

	ledger := NewLedger(uow)
	if err := ledger.Move(ctx, in.StockItemID, in.FromHolderID, in.ToHolderID, in.Quantity); err != nil {
		return nil, err
	}
	return NewRecorder(uow.Movements).Record(ctx, in.StockItemID, in.FromHolderID, in.ToHolderID, in.Quantity, actorID, in.Notes)
}
