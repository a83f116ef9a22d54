// Package workflow contiene la máquina de estados de solicitudes (servicio de dominio puro).
//
//	pending --approve--> pending_secondary   (inventory_share)
//	pending --approve--> approved --auto--> completed
//	pending_secondary --approve--> approved --auto--> completed
//	pending | pending_secondary --deny--> denied
//
// Las funciones mutan la solicitud en memoria y agregan la transición a su historial;
// la persistencia y las transferencias las hace la capa de aplicación.
package workflow

import (
	"fmt"
	"time"

	"github.com/jhoicas/stockflow/internal/domain"
	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// InitialAssigneeRole rol del primer aprobador según el tipo de solicitud.
func InitialAssigneeRole(t entity.RequestType) (entity.Role, error) {
	switch t {
	case entity.RequestTypePrepareOrder, entity.RequestTypeReceiveInventory:
		return entity.RoleStockKeeper, nil
	case entity.RequestTypeInventoryShare:
		return entity.RoleProductManager, nil
	}
	return "", fmt.Errorf("%w: tipo de solicitud %q", domain.ErrInvalidInput, t)
}

// FinalAssigneeRole rol requerido para la segunda etapa (solo inventory_share).
func FinalAssigneeRole(t entity.RequestType) (entity.Role, bool) {
	if RequiresSecondStage(t) {
		return entity.RoleStockKeeper, true
	}
	return "", false
}

// RequiresSecondStage indica si el tipo tiene dos etapas de aprobación.
func RequiresSecondStage(t entity.RequestType) bool {
	return t == entity.RequestTypeInventoryShare
}

// IsTerminal indica si el estado no admite más transiciones.
func IsTerminal(s entity.RequestStatus) bool {
	return s == entity.RequestStatusDenied || s == entity.RequestStatusCompleted
}

// ValidateNew verifica los campos de una solicitud recién creada. Un inventory_share sin
// FinalAssignee se rechaza aquí para no dejar solicitudes atascadas en pending_secondary.
func ValidateNew(req *entity.Request) error {
	if !req.Type.Valid() {
		return fmt.Errorf("%w: tipo de solicitud %q", domain.ErrInvalidInput, req.Type)
	}
	if req.Title == "" {
		return fmt.Errorf("%w: title es requerido", domain.ErrInvalidInput)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: la solicitud no tiene ítems", domain.ErrInvalidInput)
	}
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: ítem %d con cantidad %d", domain.ErrInvalidInput, i, it.Quantity)
		}
		if it.StockItemID == "" && it.ItemName == "" {
			return fmt.Errorf("%w: ítem %d sin stock_item_id ni item_name", domain.ErrInvalidInput, i)
		}
	}
	if RequiresSecondStage(req.Type) && req.FinalAssignee == "" {
		return fmt.Errorf("%w: inventory_share requiere final_assignee", domain.ErrInvalidTransition)
	}
	return nil
}

// Open deja la solicitud recién creada en pending y registra la transición inicial.
func Open(req *entity.Request, actorID string, now time.Time) {
	req.Status = ""
	transition(req, entity.RequestStatusPending, actorID, "", now)
	req.CreatedAt = now
}

// Approve aplica una aprobación del asignado actual. Devuelve el nuevo estado:
// pending_secondary (primera etapa de inventory_share) o approved (listo para Complete).
func Approve(req *entity.Request, actorID, notes string, now time.Time) (entity.RequestStatus, error) {
	switch req.Status {
	case entity.RequestStatusPending:
		if RequiresSecondStage(req.Type) {
			if req.FinalAssignee == "" {
				return req.Status, fmt.Errorf("%w: inventory_share sin final_assignee", domain.ErrInvalidTransition)
			}
			req.IntermediateApprover = actorID
			transition(req, entity.RequestStatusPendingSecondary, actorID, notes, now)
			req.AssignedTo = req.FinalAssignee
			return req.Status, nil
		}
		transition(req, entity.RequestStatusApproved, actorID, notes, now)
		return req.Status, nil
	case entity.RequestStatusPendingSecondary:
		transition(req, entity.RequestStatusApproved, actorID, notes, now)
		return req.Status, nil
	}
	return req.Status, fmt.Errorf("%w: no se puede aprobar desde %s", domain.ErrInvalidTransition, req.Status)
}

// Complete es la arista automática approved -> completed. Debe invocarse en la misma
// unidad de trabajo que las transferencias que dispara.
func Complete(req *entity.Request, actorID string, now time.Time) error {
	if req.Status != entity.RequestStatusApproved {
		return fmt.Errorf("%w: no se puede completar desde %s", domain.ErrInvalidTransition, req.Status)
	}
	transition(req, entity.RequestStatusCompleted, actorID, "", now)
	decided := now
	req.DecidedAt = &decided
	return nil
}

// Deny rechaza la solicitud (terminal, sin transferencias).
func Deny(req *entity.Request, actorID, notes string, now time.Time) error {
	switch req.Status {
	case entity.RequestStatusPending, entity.RequestStatusPendingSecondary:
		transition(req, entity.RequestStatusDenied, actorID, notes, now)
		decided := now
		req.DecidedAt = &decided
		return nil
	}
	return fmt.Errorf("%w: no se puede rechazar desde %s", domain.ErrInvalidTransition, req.Status)
}

// TransferRoute origen y destino de las transferencias al completar la solicitud.
func TransferRoute(req *entity.Request) (from, to string) {
	switch req.Type {
	case entity.RequestTypeInventoryShare:
		return req.IntermediateApprover, req.FinalAssignee
	case entity.RequestTypeReceiveInventory:
		return entity.CentralPool, req.CreatedBy
	default:
		// prepare_order: el bodeguero que aprueba prepara el pedido desde la bodega central.
		return entity.CentralPool, req.AssignedTo
	}
}

func transition(req *entity.Request, to entity.RequestStatus, actorID, notes string, now time.Time) {
	req.History = append(req.History, entity.RequestTransition{
		RequestID: req.ID,
		From:      req.Status,
		To:        to,
		Actor:     actorID,
		Notes:     notes,
		At:        now,
	})
	req.Status = to
	if notes != "" {
		req.DecisionNotes = notes
	}
}
