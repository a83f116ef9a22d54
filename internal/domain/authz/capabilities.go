// Package authz define la tabla de capacidades por rol como función pura (rol, capacidad) -> bool.
package authz

import "github.com/jhoicas/stockflow/internal/domain/entity"

// Capability capacidad que un rol puede tener.
type Capability string

// Capacidades conocidas.
const (
	CapMoveStock              Capability = "move_stock"
	CapCreatePrepareOrder     Capability = "create_prepare_order"
	CapCreateInventoryShare   Capability = "create_inventory_share"
	CapCreateReceiveInventory Capability = "create_receive_inventory"
	CapApproveRequests        Capability = "approve_requests"
	CapManageItems            Capability = "manage_items"
	CapViewLedger             Capability = "view_ledger"
	CapManageUsers            Capability = "manage_users"
)

var table = map[entity.Role]map[Capability]bool{
	entity.RoleAdmin: {
		CapMoveStock:              true,
		CapCreatePrepareOrder:     true,
		CapCreateInventoryShare:   true,
		CapCreateReceiveInventory: true,
		CapApproveRequests:        true,
		CapManageItems:            true,
		CapViewLedger:             true,
		CapManageUsers:            true,
	},
	entity.RoleProductManager: {
		CapMoveStock:              true,
		CapCreatePrepareOrder:     true,
		CapCreateInventoryShare:   true,
		CapCreateReceiveInventory: true,
		CapApproveRequests:        true,
		CapViewLedger:             true,
	},
	entity.RoleStockKeeper: {
		CapMoveStock:              true,
		CapCreatePrepareOrder:     true,
		CapCreateReceiveInventory: true,
		CapApproveRequests:        true,
		CapManageItems:            true,
		CapViewLedger:             true,
	},
	entity.RoleEmployee: {
		CapCreatePrepareOrder:     true,
		CapCreateInventoryShare:   true,
		CapCreateReceiveInventory: true,
	},
}

// Can indica si el rol tiene la capacidad. Roles desconocidos no tienen ninguna.
func Can(role entity.Role, c Capability) bool {
	return table[role][c]
}

// CreateCapability devuelve la capacidad necesaria para crear una solicitud del tipo dado.
func CreateCapability(t entity.RequestType) (Capability, bool) {
	switch t {
	case entity.RequestTypePrepareOrder:
		return CapCreatePrepareOrder, true
	case entity.RequestTypeInventoryShare:
		return CapCreateInventoryShare, true
	case entity.RequestTypeReceiveInventory:
		return CapCreateReceiveInventory, true
	}
	return "", false
}

// CanCreateRequest indica si el rol puede crear solicitudes del tipo dado.
func CanCreateRequest(role entity.Role, t entity.RequestType) bool {
	c, ok := CreateCapability(t)
	return ok && Can(role, c)
}

// CanApprove indica si el actor puede aprobar o rechazar la solicitud en su estado actual:
// debe ser el asignado actual y su rol debe poder aprobar.
func CanApprove(actor entity.Actor, req *entity.Request) bool {
	if req == nil || actor.UserID == "" {
		return false
	}
	return actor.UserID == req.AssignedTo && Can(actor.Role, CapApproveRequests)
}
