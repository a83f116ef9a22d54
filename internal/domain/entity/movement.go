package entity

import "time"

// Movement registro inmutable del libro de movimientos: Quantity pasó de FromHolderID a ToHolderID.
type Movement struct {
	ID           int64
	StockItemID  string
	FromHolderID string // CentralPool = bodega central
	ToHolderID   string // CentralPool = devolución a bodega central
	Quantity     int64
	MovedBy      string
	MovedAt      time.Time
	Notes        string
}
