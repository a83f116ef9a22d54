package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferRequest body para POST /api/inventory/transfers.
// from_holder_id / to_holder_id vacíos u omitidos = bodega central.
type TransferRequest struct {
	StockItemID  string `json:"stock_item_id"`
	FromHolderID string `json:"from_holder_id,omitempty"`
	ToHolderID   string `json:"to_holder_id,omitempty"`
	Quantity     int64  `json:"quantity"`
	Notes        string `json:"notes,omitempty"`
}

// MovementResponse movimiento del libro. Holder nulo = bodega central.
type MovementResponse struct {
	ID           int64     `json:"id"`
	StockItemID  string    `json:"stock_item_id"`
	FromHolderID *string   `json:"from_holder_id"`
	ToHolderID   *string   `json:"to_holder_id"`
	Quantity     int64     `json:"quantity"`
	MovedBy      string    `json:"moved_by"`
	MovedAt      time.Time `json:"moved_at"`
	Notes        string    `json:"notes,omitempty"`
}

// BalanceResponse saldo de un tenedor para un ítem.
type BalanceResponse struct {
	StockItemID string  `json:"stock_item_id"`
	HolderID    *string `json:"holder_id"`
	Quantity    int64   `json:"quantity"`
}

// AllocationResponse asignación vigente de un ítem.
type AllocationResponse struct {
	StockItemID string    `json:"stock_item_id"`
	HolderID    *string   `json:"holder_id"`
	Quantity    int64     `json:"quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateStockItemRequest body para POST /api/items.
type CreateStockItemRequest struct {
	Name         string          `json:"name"`
	CategoryID   string          `json:"category_id,omitempty"`
	SpecialtyID  string          `json:"specialty_id,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Expiry       *time.Time      `json:"expiry,omitempty"`
	UniqueNumber string          `json:"unique_number,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	Quantity     int64           `json:"quantity"`
}

// StockItemResponse salida de un ítem del catálogo.
type StockItemResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	CategoryID   string          `json:"category_id,omitempty"`
	SpecialtyID  string          `json:"specialty_id,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Expiry       *time.Time      `json:"expiry,omitempty"`
	UniqueNumber string          `json:"unique_number,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	Quantity     int64           `json:"quantity"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// HolderRef convierte un holder de dominio a JSON (nil = bodega central).
func HolderRef(holderID string) *string {
	if holderID == "" {
		return nil
	}
	h := holderID
	return &h
}
