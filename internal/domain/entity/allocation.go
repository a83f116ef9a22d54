package entity

import "time"

// CentralPool identifica al tenedor central (bodega). En base de datos se persiste como NULL.
const CentralPool = ""

// Allocation cantidad de un ítem atribuida a un tenedor.
type Allocation struct {
	StockItemID string
	HolderID    string // CentralPool = bodega central
	Quantity    int64
	UpdatedAt   time.Time
}

// IsCentral indica si la asignación pertenece a la bodega central.
func (a *Allocation) IsCentral() bool {
	return a.HolderID == CentralPool
}
