package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/stockflow/internal/application/auth"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/application/workflow"
	"github.com/jhoicas/stockflow/internal/domain/authz"
	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC         *auth.AuthUseCase
	TransferUC     *inventory.TransferUseCase
	InventoryUC    *inventory.InventoryUseCase
	RequestUC      *workflow.RequestUseCase
	MetricsHandler nethttp.Handler // nil = sin /metrics
	ServiceName    string
	JWTSecret      string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsHandler))
	}

	api := app.Group("/api")
	authMW := AuthMiddleware(deps.JWTSecret)

	// Auth: login público, registro solo admin
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/register", authMW, RequireRole(string(entity.RoleAdmin)), authHandler.Register)

	// Catálogo
	items := api.Group("/items", authMW)
	itemHandler := NewItemHandler(deps.InventoryUC)
	items.Post("/", RequireCapability(authz.CapManageItems), itemHandler.Create)
	items.Get("/", itemHandler.List)
	items.Get("/:id", itemHandler.GetByID)
	items.Get("/:id/allocations", RequireCapability(authz.CapViewLedger), itemHandler.Allocations)

	// Saldos, transferencias y libro
	inv := api.Group("/inventory", authMW)
	inventoryHandler := NewInventoryHandler(deps.TransferUC, deps.InventoryUC)
	inv.Get("/balance", RequireCapability(authz.CapViewLedger), inventoryHandler.Balance)
	inv.Get("/holdings", inventoryHandler.Holdings)
	inv.Post("/transfers", RequireCapability(authz.CapMoveStock), inventoryHandler.Transfer)
	inv.Get("/movements", RequireCapability(authz.CapViewLedger), inventoryHandler.Movements)

	// Solicitudes
	requests := api.Group("/requests", authMW)
	requestHandler := NewRequestHandler(deps.RequestUC)
	requests.Post("/", requestHandler.Create)
	requests.Get("/", requestHandler.List)
	requests.Get("/:id", requestHandler.GetByID)
	requests.Post("/:id/approve", requestHandler.Approve)
	requests.Post("/:id/deny", requestHandler.Deny)
}
