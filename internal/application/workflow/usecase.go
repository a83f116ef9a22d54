// Package workflow orquesta las solicitudes de movimiento: alta, aprobación en una o dos
// etapas, rechazo y, al completarse, las transferencias que la solicitud implica.
package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stockflow/internal/application/events"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/authz"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
	wf "github.com/jhoicas/stockflow/internal/domain/workflow"
	"github.com/jhoicas/stockflow/pkg/logger"
)

// RequestUseCase motor de solicitudes.
type RequestUseCase struct {
	txRunner  inventory.TxRunner
	repos     repository.UnitOfWork
	transfers *inventory.TransferUseCase
	publisher events.Publisher
	retry     inventory.RetryConfig
	log       *logger.Logger
}

// NewRequestUseCase construye el caso de uso.
func NewRequestUseCase(
	txRunner inventory.TxRunner,
	repos repository.UnitOfWork,
	transfers *inventory.TransferUseCase,
	publisher events.Publisher,
	retry inventory.RetryConfig,
	log *logger.Logger,
) *RequestUseCase {
	return &RequestUseCase{
		txRunner:  txRunner,
		repos:     repos,
		transfers: transfers,
		publisher: publisher,
		retry:     retry,
		log:       log.Component("workflow"),
	}
}

// CreateRequestInput entrada para crear una solicitud. AssignedTo vacío = primer usuario activo
// con el rol requerido por el tipo.
type CreateRequestInput struct {
	Type          entity.RequestType
	Title         string
	Description   string
	Items         []entity.RequestItem
	AssignedTo    string
	FinalAssignee string
}

// CreateRequest valida tipo y rol, resuelve el asignado y persiste la solicitud en pending.
func (uc *RequestUseCase) CreateRequest(ctx context.Context, actor entity.Actor, in CreateRequestInput) (*entity.Request, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: tipo de solicitud %q", domain.ErrInvalidInput, in.Type)
	}
	if !authz.CanCreateRequest(actor.Role, in.Type) {
		return nil, fmt.Errorf("%w: el rol %q no puede crear %s", domain.ErrUnauthorized, actor.Role, in.Type)
	}
	items := make([]entity.RequestItem, len(in.Items))
	copy(items, in.Items)
	req := &entity.Request{
		ID:            uuid.New().String(),
		Type:          in.Type,
		Title:         in.Title,
		Description:   in.Description,
		CreatedBy:     actor.UserID,
		AssignedTo:    in.AssignedTo,
		FinalAssignee: in.FinalAssignee,
		Items:         items,
	}
	if err := wf.ValidateNew(req); err != nil {
		return nil, err
	}

	err := uc.txRunner.Run(ctx, func(uow repository.UnitOfWork) error {
		for _, it := range req.Items {
			if !it.IsCatalogued() {
				continue
			}
			item, err := uow.Items.GetByID(ctx, it.StockItemID)
			if err != nil {
				return err
			}
			if item == nil {
				return fmt.Errorf("%w: ítem %s", domain.ErrNotFound, it.StockItemID)
			}
		}
		role, err := wf.InitialAssigneeRole(req.Type)
		if err != nil {
			return err
		}
		if req.AssignedTo, err = resolveAssignee(ctx, uow.Users, req.AssignedTo, role); err != nil {
			return err
		}
		if finalRole, ok := wf.FinalAssigneeRole(req.Type); ok {
			if req.FinalAssignee, err = resolveAssignee(ctx, uow.Users, req.FinalAssignee, finalRole); err != nil {
				return err
			}
			if req.FinalAssignee == req.AssignedTo {
				return fmt.Errorf("%w: assigned_to y final_assignee deben ser distintos", domain.ErrInvalidInput)
			}
		} else {
			req.FinalAssignee = ""
		}
		wf.Open(req, actor.UserID, time.Now().UTC())
		if err := uow.Requests.Create(ctx, req); err != nil {
			return err
		}
		return uow.Requests.AppendTransitions(ctx, req.History)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("request_id", req.ID).
		Str("type", string(req.Type)).
		Str("assigned_to", req.AssignedTo).
		Msg("solicitud creada")
	uc.publish(ctx, events.RequestCreated, actor.UserID, req)
	return req, nil
}

// ApproveRequest aprueba la etapa actual. En la última etapa la solicitud pasa a approved y,
// en la misma transacción, a completed ejecutando una transferencia por ítem catalogado.
// Si alguna transferencia falla no se confirma nada y la solicitud queda como estaba.
func (uc *RequestUseCase) ApproveRequest(ctx context.Context, actor entity.Actor, requestID, notes string) (*entity.Request, error) {
	var (
		req       *entity.Request
		movements []*entity.Movement
	)
	err := inventory.RunWithRetry(ctx, uc.retry, func(ctx context.Context) error {
		return uc.txRunner.Run(ctx, func(uow repository.UnitOfWork) error {
			r, err := uc.loadForDecision(ctx, uow, actor, requestID)
			if err != nil {
				return err
			}
			seen := len(r.History)
			now := time.Now().UTC()
			status, err := wf.Approve(r, actor.UserID, notes, now)
			if err != nil {
				return err
			}
			var movs []*entity.Movement
			if status == entity.RequestStatusApproved {
				if movs, err = uc.executeTransfers(ctx, uow, r, actor.UserID); err != nil {
					return err
				}
				if err := wf.Complete(r, actor.UserID, now); err != nil {
					return err
				}
			}
			if err := uow.Requests.Update(ctx, r); err != nil {
				return err
			}
			if err := uow.Requests.AppendTransitions(ctx, r.History[seen:]); err != nil {
				return err
			}
			req, movements = r, movs
			return nil
		})
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("request_id", requestID).Str("actor", actor.UserID).Msg("aprobación rechazada")
		return nil, err
	}

	uc.log.Info().
		Str("request_id", req.ID).
		Str("status", string(req.Status)).
		Int("movements", len(movements)).
		Msg("solicitud aprobada")
	uc.publish(ctx, events.RequestApproved, actor.UserID, req)
	for _, m := range movements {
		uc.publisher.Publish(ctx, events.Event{Type: events.StockTransferred, Actor: actor.UserID, Movement: m})
	}
	return req, nil
}

// DenyRequest rechaza la solicitud (terminal, sin transferencias).
func (uc *RequestUseCase) DenyRequest(ctx context.Context, actor entity.Actor, requestID, notes string) (*entity.Request, error) {
	var req *entity.Request
	err := inventory.RunWithRetry(ctx, uc.retry, func(ctx context.Context) error {
		return uc.txRunner.Run(ctx, func(uow repository.UnitOfWork) error {
			r, err := uc.loadForDecision(ctx, uow, actor, requestID)
			if err != nil {
				return err
			}
			seen := len(r.History)
			if err := wf.Deny(r, actor.UserID, notes, time.Now().UTC()); err != nil {
				return err
			}
			if err := uow.Requests.Update(ctx, r); err != nil {
				return err
			}
			if err := uow.Requests.AppendTransitions(ctx, r.History[seen:]); err != nil {
				return err
			}
			req = r
			return nil
		})
	})
	if err != nil {
		uc.log.Warn().Err(err).Str("request_id", requestID).Str("actor", actor.UserID).Msg("rechazo no aplicado")
		return nil, err
	}
	uc.log.Info().Str("request_id", req.ID).Msg("solicitud rechazada")
	uc.publish(ctx, events.RequestDenied, actor.UserID, req)
	return req, nil
}

// GetRequest obtiene una solicitud con su historial.
func (uc *RequestUseCase) GetRequest(ctx context.Context, id string) (*entity.Request, error) {
	r, err := uc.repos.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: solicitud %s", domain.ErrNotFound, id)
	}
	return r, nil
}

// ListRequests lista solicitudes con filtros opcionales.
func (uc *RequestUseCase) ListRequests(ctx context.Context, f repository.RequestFilter) ([]*entity.Request, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	return uc.repos.Requests.List(ctx, f)
}

// loadForDecision bloquea la solicitud y verifica estado terminal y asignado, en ese orden:
// una solicitud terminal siempre responde ErrInvalidTransition, sea quien sea el llamador.
func (uc *RequestUseCase) loadForDecision(ctx context.Context, uow repository.UnitOfWork, actor entity.Actor, requestID string) (*entity.Request, error) {
	r, err := uow.Requests.GetForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: solicitud %s", domain.ErrNotFound, requestID)
	}
	if wf.IsTerminal(r.Status) {
		return nil, fmt.Errorf("%w: la solicitud ya está %s", domain.ErrInvalidTransition, r.Status)
	}
	if !authz.CanApprove(actor, r) {
		return nil, fmt.Errorf("%w: la solicitud está asignada a otro usuario", domain.ErrUnauthorized)
	}
	return r, nil
}

// executeTransfers bloquea los ítems catalogados (orden fijo para evitar deadlocks) y
// ejecuta una transferencia por línea desde el origen implícito hacia el destino final.
func (uc *RequestUseCase) executeTransfers(ctx context.Context, uow repository.UnitOfWork, r *entity.Request, actorID string) ([]*entity.Movement, error) {
	ids := catalogItemIDs(r.Items)
	if len(ids) == 0 {
		return nil, nil
	}
	if err := uow.Items.LockForUpdate(ctx, ids); err != nil {
		return nil, err
	}
	from, to := wf.TransferRoute(r)
	movs := make([]*entity.Movement, 0, len(r.Items))
	for _, it := range r.Items {
		if !it.IsCatalogued() {
			continue
		}
		notes := it.Notes
		if notes == "" {
			notes = fmt.Sprintf("%s %s", r.Type, r.ID)
		}
		m, err := uc.transfers.ExecuteInTx(ctx, uow, inventory.TransferInput{
			StockItemID:  it.StockItemID,
			FromHolderID: from,
			ToHolderID:   to,
			Quantity:     it.Quantity,
			Notes:        notes,
		}, actorID)
		if err != nil {
			return nil, fmt.Errorf("ítem %s: %w", it.StockItemID, err)
		}
		movs = append(movs, m)
	}
	return movs, nil
}

func (uc *RequestUseCase) publish(ctx context.Context, t events.Type, actorID string, r *entity.Request) {
	snapshot := *r
	uc.publisher.Publish(ctx, events.Event{Type: t, Actor: actorID, Request: &snapshot})
}

func resolveAssignee(ctx context.Context, users repository.UserRepository, userID string, role entity.Role) (string, error) {
	if userID == "" {
		u, err := users.FirstActiveByRole(ctx, role)
		if err != nil {
			return "", err
		}
		if u == nil {
			return "", fmt.Errorf("%w: no hay usuarios activos con rol %s", domain.ErrNotFound, role)
		}
		return u.ID, nil
	}
	u, err := users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", fmt.Errorf("%w: usuario %s", domain.ErrNotFound, userID)
	}
	if u.Role != role && u.Role != entity.RoleAdmin {
		return "", fmt.Errorf("%w: el usuario %s no tiene rol %s", domain.ErrInvalidInput, userID, role)
	}
	if u.Status != entity.UserStatusActive {
		return "", fmt.Errorf("%w: el usuario %s no está activo", domain.ErrInvalidInput, userID)
	}
	return u.ID, nil
}

func catalogItemIDs(items []entity.RequestItem) []string {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.IsCatalogued() {
			set[it.StockItemID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
