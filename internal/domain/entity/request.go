package entity

import "time"

// RequestType tipo de solicitud de movimiento.
type RequestType string

// Tipos de solicitud.
const (
	RequestTypePrepareOrder     RequestType = "prepare_order"
	RequestTypeInventoryShare   RequestType = "inventory_share"
	RequestTypeReceiveInventory RequestType = "receive_inventory"
)

// Valid indica si el tipo es conocido.
func (t RequestType) Valid() bool {
	switch t {
	case RequestTypePrepareOrder, RequestTypeInventoryShare, RequestTypeReceiveInventory:
		return true
	}
	return false
}

// RequestStatus estado de una solicitud en el flujo de aprobación.
type RequestStatus string

// Estados de solicitud. Denied y Completed son terminales.
const (
	RequestStatusPending          RequestStatus = "pending"
	RequestStatusPendingSecondary RequestStatus = "pending_secondary"
	RequestStatusApproved         RequestStatus = "approved"
	RequestStatusDenied           RequestStatus = "denied"
	RequestStatusCompleted        RequestStatus = "completed"
)

// Request solicitud que requiere una o dos aprobaciones antes de generar movimientos.
type Request struct {
	ID                   string
	Type                 RequestType
	Title                string
	Description          string
	CreatedBy            string
	Status               RequestStatus
	AssignedTo           string
	FinalAssignee        string // solo inventory_share
	IntermediateApprover string // quien aprobó la primera etapa de inventory_share
	DecisionNotes        string
	Items                []RequestItem
	CreatedAt            time.Time
	DecidedAt            *time.Time
	History              []RequestTransition
}

// RequestItem línea de la solicitud: referencia al catálogo (StockItemID) o texto libre (ItemName).
type RequestItem struct {
	StockItemID string
	ItemName    string
	Quantity    int64
	Notes       string
}

// IsCatalogued indica si la línea referencia un ítem existente y por tanto genera transferencia.
func (i RequestItem) IsCatalogued() bool {
	return i.StockItemID != ""
}

// RequestTransition entrada del historial de estados de una solicitud.
type RequestTransition struct {
	RequestID string
	From      RequestStatus
	To        RequestStatus
	Actor     string
	Notes     string
	At        time.Time
}
