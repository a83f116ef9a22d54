package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockflow/internal/application/dto"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/domain/authz"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

// InventoryHandler maneja saldos, transferencias y el libro de movimientos (protegido).
type InventoryHandler struct {
	transfers *inventory.TransferUseCase
	queries   *inventory.InventoryUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(transfers *inventory.TransferUseCase, queries *inventory.InventoryUseCase) *InventoryHandler {
	return &InventoryHandler{transfers: transfers, queries: queries}
}

// Transfer godoc
// @Summary      Transferir stock entre tenedores
// @Description  Holder vacío u omitido = bodega central.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "stock_item_id, from_holder_id, to_holder_id, quantity"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) Transfer(c *fiber.Ctx) error {
	if GetUserID(c) == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.transfers.TransferFromRequest(c.UserContext(), GetActor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Balance godoc
// @Summary      Saldo de un tenedor
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id    query  string  true   "ID del ítem"
// @Param        holder_id  query  string  false  "Vacío = bodega central"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/balance [get]
func (h *InventoryHandler) Balance(c *fiber.Ctx) error {
	itemID := c.Query("item_id")
	if itemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "item_id es requerido"})
	}
	holderID := c.Query("holder_id")
	qty, err := h.queries.GetBalance(c.UserContext(), itemID, holderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BalanceResponse{StockItemID: itemID, HolderID: dto.HolderRef(holderID), Quantity: qty})
}

// Holdings godoc
// @Summary      Existencias de un tenedor en todos los ítems
// @Description  holder_id=me (por defecto) devuelve las propias; ver las de otro requiere view_ledger.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        holder_id  query  string  false  "ID de usuario, 'me' o vacío con central=true"
// @Param        central    query  bool    false  "Existencias de la bodega central"
// @Success      200  {array}  dto.AllocationResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/holdings [get]
func (h *InventoryHandler) Holdings(c *fiber.Ctx) error {
	me := GetUserID(c)
	holderID := c.Query("holder_id", "me")
	if holderID == "me" {
		holderID = me
	}
	if c.QueryBool("central") {
		holderID = ""
	}
	if holderID != me && !authz.Can(GetActor(c).Role, authz.CapViewLedger) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "solo puede consultar sus propias existencias"})
	}
	allocs, err := h.queries.ListHoldings(c.UserContext(), holderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inventory.ToAllocationResponses(allocs))
}

// Movements godoc
// @Summary      Libro de movimientos
// @Description  Orden de auditoría (id ascendente).
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        item_id    query  string  false  "Filtrar por ítem"
// @Param        holder_id  query  string  false  "Filtrar por tenedor (origen o destino)"
// @Param        limit      query  int     false  "máximo 100"
// @Param        offset     query  int     false  "desplazamiento"
// @Success      200  {array}  dto.MovementResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	limit, offset := pageParams(c, 100)
	movs, err := h.queries.ListMovements(c.UserContext(), repository.MovementFilter{
		StockItemID: c.Query("item_id"),
		HolderID:    c.Query("holder_id"),
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*dto.MovementResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, inventory.ToMovementResponse(m))
	}
	return c.JSON(out)
}
