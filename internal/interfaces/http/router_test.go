package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow/internal/application/auth"
	"github.com/jhoicas/stockflow/internal/application/dto"
	"github.com/jhoicas/stockflow/internal/application/events"
	"github.com/jhoicas/stockflow/internal/application/inventory"
	"github.com/jhoicas/stockflow/internal/application/workflow"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/infrastructure/memory"
	"github.com/jhoicas/stockflow/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/stockflow/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/stockflow/pkg/jwt"
	"github.com/jhoicas/stockflow/pkg/logger"
)

const apiPassword = "clave-segura-123"

// buildAPI monta el router completo sobre el almacén en memoria con admin, keeper y emp.
func buildAPI(t *testing.T) *fiber.App {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore(time.Second)
	repos := store.UnitOfWork()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, u := range []struct {
		id   string
		role entity.Role
	}{{"admin", entity.RoleAdmin}, {"keeper", entity.RoleStockKeeper}, {"emp", entity.RoleEmployee}} {
		user, err := auth.NewUser(u.id+"@test.local", apiPassword, u.id, u.role)
		require.NoError(t, err)
		user.ID = u.id
		user.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repos.Users.Create(ctx, user))
	}

	m := metrics.New("stockflow")
	bus := events.NewBus()
	bus.Subscribe(m.Subscriber())
	retry := inventory.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	transfers := inventory.NewTransferUseCase(store, bus, retry, logger.Nop())

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:         auth.NewAuthUseCase(repos.Users, auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: testExpMin, Issuer: testIssuer}),
		TransferUC:     transfers,
		InventoryUC:    inventory.NewInventoryUseCase(store, repos),
		RequestUC:      workflow.NewRequestUseCase(store, repos, transfers, bus, retry, logger.Nop()),
		MetricsHandler: m.Handler(),
		ServiceName:    "stockflow",
		JWTSecret:      testJWTSecret,
	})
	return app
}

func bearer(t *testing.T, userID string, role entity.Role) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, userID, string(role), testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

// call lanza la petición y devuelve status y cuerpo.
func call(t *testing.T, app *fiber.App, method, path, authHeader string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func createItem(t *testing.T, app *fiber.App, qty int64) string {
	t.Helper()
	status, raw := call(t, app, http.MethodPost, "/api/items", bearer(t, "admin", entity.RoleAdmin),
		map[string]any{"name": "Guantes", "quantity": qty, "price": "12.50"})
	require.Equal(t, http.StatusCreated, status, string(raw))
	item := decode[dto.StockItemResponse](t, raw)
	require.NotEmpty(t, item.ID)
	assert.Equal(t, "12.5", item.Price.String())
	return item.ID
}

func TestRouter_HealthYLogin(t *testing.T) {
	app := buildAPI(t)

	status, raw := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "stockflow")

	status, raw = call(t, app, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "keeper@test.local", Password: apiPassword})
	require.Equal(t, http.StatusOK, status, string(raw))
	login := decode[dto.LoginResponse](t, raw)
	assert.Equal(t, "keeper", login.User.ID)
	userID, role, err := pkgjwt.Parse(testJWTSecret, login.Token)
	require.NoError(t, err)
	assert.Equal(t, "keeper", userID)
	assert.Equal(t, "stock_keeper", role)

	status, _ = call(t, app, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "keeper@test.local", Password: "otra-clave"})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = call(t, app, http.MethodPost, "/api/auth/login", "", dto.LoginRequest{Email: "nadie@test.local", Password: "otra-clave"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRouter_RegisterSoloAdmin(t *testing.T) {
	app := buildAPI(t)
	body := dto.RegisterRequest{Email: "pm@test.local", Password: apiPassword, Role: "product_manager"}

	status, _ := call(t, app, http.MethodPost, "/api/auth/register", bearer(t, "keeper", entity.RoleStockKeeper), body)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw := call(t, app, http.MethodPost, "/api/auth/register", bearer(t, "admin", entity.RoleAdmin), body)
	require.Equal(t, http.StatusCreated, status, string(raw))
	assert.Equal(t, "product_manager", decode[dto.UserResponse](t, raw).Role)

	status, _ = call(t, app, http.MethodPost, "/api/auth/register", bearer(t, "admin", entity.RoleAdmin), body)
	assert.Equal(t, http.StatusConflict, status)
}

func TestRouter_TransferenciasYSaldos(t *testing.T) {
	app := buildAPI(t)
	itemID := createItem(t, app, 100)
	keeperAuth := bearer(t, "keeper", entity.RoleStockKeeper)

	status, raw := call(t, app, http.MethodGet, "/api/inventory/balance?item_id="+itemID, keeperAuth, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	bal := decode[dto.BalanceResponse](t, raw)
	assert.Nil(t, bal.HolderID)
	assert.Equal(t, int64(100), bal.Quantity)

	status, raw = call(t, app, http.MethodPost, "/api/inventory/transfers", keeperAuth,
		dto.TransferRequest{StockItemID: itemID, ToHolderID: "keeper", Quantity: 30})
	require.Equal(t, http.StatusCreated, status, string(raw))
	mov := decode[dto.MovementResponse](t, raw)
	assert.Nil(t, mov.FromHolderID)
	require.NotNil(t, mov.ToHolderID)
	assert.Equal(t, "keeper", *mov.ToHolderID)

	status, raw = call(t, app, http.MethodPost, "/api/inventory/transfers", keeperAuth,
		dto.TransferRequest{StockItemID: itemID, FromHolderID: "keeper", Quantity: 50})
	require.Equal(t, http.StatusConflict, status)
	errResp := decode[dto.ErrorResponse](t, raw)
	assert.Equal(t, "INSUFFICIENT_QUANTITY", errResp.Code)
	assert.Equal(t, float64(30), errResp.Details["available"])
	assert.Equal(t, float64(50), errResp.Details["requested"])
	assert.Equal(t, "keeper", errResp.Details["holder_id"])

	status, _ = call(t, app, http.MethodPost, "/api/inventory/transfers", bearer(t, "emp", entity.RoleEmployee),
		dto.TransferRequest{StockItemID: itemID, ToHolderID: "emp", Quantity: 1})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = call(t, app, http.MethodPost, "/api/inventory/transfers", keeperAuth,
		dto.TransferRequest{StockItemID: itemID, ToHolderID: "keeper", Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodPost, "/api/inventory/transfers", keeperAuth,
		dto.TransferRequest{StockItemID: "no-existe", ToHolderID: "keeper", Quantity: 1})
	assert.Equal(t, http.StatusNotFound, status)

	status, raw = call(t, app, http.MethodGet, "/api/items/"+itemID+"/allocations", keeperAuth, nil)
	require.Equal(t, http.StatusOK, status)
	allocs := decode[[]dto.AllocationResponse](t, raw)
	var sum int64
	for _, a := range allocs {
		sum += a.Quantity
	}
	assert.Equal(t, int64(100), sum)

	status, raw = call(t, app, http.MethodGet, "/api/inventory/movements?item_id="+itemID, keeperAuth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]dto.MovementResponse](t, raw), 1)

	status, raw = call(t, app, http.MethodGet, "/api/inventory/holdings", keeperAuth, nil)
	require.Equal(t, http.StatusOK, status)
	holdings := decode[[]dto.AllocationResponse](t, raw)
	require.Len(t, holdings, 1)
	assert.Equal(t, itemID, holdings[0].StockItemID)
	assert.Equal(t, int64(30), holdings[0].Quantity)

	empAuth := bearer(t, "emp", entity.RoleEmployee)
	status, _ = call(t, app, http.MethodGet, "/api/inventory/holdings?holder_id=keeper", empAuth, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, raw = call(t, app, http.MethodGet, "/api/inventory/holdings?holder_id=me", empAuth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]dto.AllocationResponse](t, raw))
}

func TestRouter_FlujoDeSolicitud(t *testing.T) {
	app := buildAPI(t)
	itemID := createItem(t, app, 100)
	empAuth := bearer(t, "emp", entity.RoleEmployee)
	keeperAuth := bearer(t, "keeper", entity.RoleStockKeeper)

	status, raw := call(t, app, http.MethodPost, "/api/requests", empAuth, dto.CreateRequestRequest{
		Type:  "prepare_order",
		Title: "Pedido",
		Items: []dto.CreateRequestItem{{StockItemID: itemID, Quantity: 10}},
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	created := decode[dto.RequestResponse](t, raw)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "keeper", created.AssignedTo)

	status, raw = call(t, app, http.MethodGet, "/api/requests?assigned_to=me", keeperAuth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]dto.RequestResponse](t, raw), 1)

	status, _ = call(t, app, http.MethodPost, "/api/requests/"+created.ID+"/approve", empAuth, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, raw = call(t, app, http.MethodPost, "/api/requests/"+created.ID+"/approve", keeperAuth, dto.DecisionRequest{Notes: "listo"})
	require.Equal(t, http.StatusOK, status, string(raw))
	done := decode[dto.RequestResponse](t, raw)
	assert.Equal(t, "completed", done.Status)
	assert.Equal(t, "listo", done.DecisionNotes)

	status, raw = call(t, app, http.MethodPost, "/api/requests/"+created.ID+"/deny", keeperAuth, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_TRANSITION", decode[dto.ErrorResponse](t, raw).Code)

	status, raw = call(t, app, http.MethodGet, "/api/requests/"+created.ID, empAuth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[dto.RequestResponse](t, raw).History, 3)

	status, raw = call(t, app, http.MethodGet, "/api/inventory/balance?item_id="+itemID+"&holder_id=keeper", keeperAuth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(10), decode[dto.BalanceResponse](t, raw).Quantity)

	status, _ = call(t, app, http.MethodGet, "/api/requests/no-existe", keeperAuth, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRouter_Metrics(t *testing.T) {
	app := buildAPI(t)
	itemID := createItem(t, app, 5)
	status, _ := call(t, app, http.MethodPost, "/api/inventory/transfers", bearer(t, "keeper", entity.RoleStockKeeper),
		dto.TransferRequest{StockItemID: itemID, ToHolderID: "keeper", Quantity: 2})
	require.Equal(t, http.StatusCreated, status)

	status, raw := call(t, app, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, status)
	body := string(raw)
	assert.True(t, strings.Contains(body, `stockflow_events_total{type="stock_transferred"} 1`), body)
	assert.Contains(t, body, "stockflow_units_transferred_total 2")
}
