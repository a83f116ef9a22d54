package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stockflow/internal/application/dto"
	"github.com/jhoicas/stockflow/internal/application/workflow"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/domain/repository"
)

// RequestHandler maneja las solicitudes de movimiento y sus decisiones (protegido).
type RequestHandler struct {
	uc *workflow.RequestUseCase
}

// NewRequestHandler construye el handler.
func NewRequestHandler(uc *workflow.RequestUseCase) *RequestHandler {
	return &RequestHandler{uc: uc}
}

// Create godoc
// @Summary      Crear solicitud
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateRequestRequest  true  "type, title, items, assigned_to, final_assignee"
// @Success      201   {object}  dto.RequestResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requests [post]
func (h *RequestHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateRequestRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	req, err := h.uc.CreateRequest(c.UserContext(), GetActor(c), workflow.FromCreateRequest(in))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(workflow.ToRequestResponse(req))
}

// GetByID godoc
// @Summary      Obtener solicitud con historial
// @Tags         requests
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la solicitud"
// @Success      200  {object}  dto.RequestResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetByID(c *fiber.Ctx) error {
	req, err := h.uc.GetRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(workflow.ToRequestResponse(req))
}

// List godoc
// @Summary      Listar solicitudes
// @Tags         requests
// @Security     Bearer
// @Produce      json
// @Param        assigned_to  query  string  false  "ID de usuario o 'me'"
// @Param        created_by   query  string  false  "ID de usuario o 'me'"
// @Param        status       query  string  false  "pending|pending_secondary|approved|denied|completed"
// @Param        limit        query  int     false  "máximo 100"
// @Param        offset       query  int     false  "desplazamiento"
// @Success      200  {array}  dto.RequestResponse
// @Router       /api/requests [get]
func (h *RequestHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c, 50)
	me := GetUserID(c)
	resolve := func(v string) string {
		if v == "me" {
			return me
		}
		return v
	}
	list, err := h.uc.ListRequests(c.UserContext(), repository.RequestFilter{
		AssignedTo: resolve(c.Query("assigned_to")),
		CreatedBy:  resolve(c.Query("created_by")),
		Status:     entity.RequestStatus(c.Query("status")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]*dto.RequestResponse, 0, len(list))
	for _, r := range list {
		out = append(out, workflow.ToRequestResponse(r))
	}
	return c.JSON(out)
}

// Approve godoc
// @Summary      Aprobar la etapa actual
// @Description  En la última etapa ejecuta las transferencias y deja la solicitud en completed.
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true   "ID de la solicitud"
// @Param        body  body  dto.DecisionRequest  false  "notes"
// @Success      200   {object}  dto.RequestResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/approve [post]
func (h *RequestHandler) Approve(c *fiber.Ctx) error {
	notes, err := decisionNotes(c)
	if err != nil {
		return badBody(c)
	}
	req, err := h.uc.ApproveRequest(c.UserContext(), GetActor(c), c.Params("id"), notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(workflow.ToRequestResponse(req))
}

// Deny godoc
// @Summary      Rechazar solicitud
// @Tags         requests
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string               true   "ID de la solicitud"
// @Param        body  body  dto.DecisionRequest  false  "notes"
// @Success      200   {object}  dto.RequestResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/requests/{id}/deny [post]
func (h *RequestHandler) Deny(c *fiber.Ctx) error {
	notes, err := decisionNotes(c)
	if err != nil {
		return badBody(c)
	}
	req, err := h.uc.DenyRequest(c.UserContext(), GetActor(c), c.Params("id"), notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(workflow.ToRequestResponse(req))
}

// decisionNotes lee el body opcional {"notes": "..."}.
func decisionNotes(c *fiber.Ctx) (string, error) {
	if len(c.Body()) == 0 {
		return "", nil
	}
	var in dto.DecisionRequest
	if err := c.BodyParser(&in); err != nil {
		return "", err
	}
	return in.Notes, nil
}
