package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockItem representa un ítem del catálogo. Quantity es el total que posee la organización;
// solo lo modifica el alta del ítem, nunca una transferencia.
type StockItem struct {
	ID           string
	Name         string
	CategoryID   string
	SpecialtyID  string
	Price        decimal.Decimal
	Expiry       *time.Time
	UniqueNumber string
	Notes        string
	Quantity     int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
