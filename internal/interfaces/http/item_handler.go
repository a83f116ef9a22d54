package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockflow/internal/application/dto"
	"github.com/jhoicas/stockflow/internal/application/inventory"
)

// ItemHandler maneja el catálogo de ítems (protegido).
type ItemHandler struct {
	uc *inventory.InventoryUseCase
}

// NewItemHandler construye el handler.
func NewItemHandler(uc *inventory.InventoryUseCase) *ItemHandler {
	return &ItemHandler{uc: uc}
}

// Create godoc
// @Summary      Registrar ítem
// @Description  Da de alta el ítem con toda su cantidad en la bodega central.
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateStockItemRequest  true  "name, price, quantity, ..."
// @Success      201   {object}  dto.StockItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/items [post]
func (h *ItemHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateStockItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if in.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "name es requerido"})
	}
	item, err := h.uc.RegisterItem(c.UserContext(), GetActor(c), inventory.ToStockItem(in))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToStockItemResponse(item))
}

// GetByID godoc
// @Summary      Obtener ítem
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del ítem"
// @Success      200  {object}  dto.StockItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id} [get]
func (h *ItemHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	item, err := h.uc.GetItem(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inventory.ToStockItemResponse(item))
}

// List godoc
// @Summary      Listar ítems
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "máximo 100"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200  {array}  dto.StockItemResponse
// @Router       /api/items [get]
func (h *ItemHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c, 20)
	items, err := h.uc.ListItems(c.UserContext(), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*dto.StockItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, inventory.ToStockItemResponse(it))
	}
	return c.JSON(out)
}

// Allocations godoc
// @Summary      Asignaciones vigentes de un ítem
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del ítem"
// @Success      200  {array}  dto.AllocationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/allocations [get]
func (h *ItemHandler) Allocations(c *fiber.Ctx) error {
	allocs, err := h.uc.ListAllocations(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inventory.ToAllocationResponses(allocs))
}
