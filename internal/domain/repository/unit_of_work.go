package repository

// UnitOfWork agrupa los repositorios atados a una misma transacción.
type UnitOfWork struct {
	Items       StockItemRepository
	Allocations AllocationRepository
	Movements   MovementRepository
	Requests    RequestRepository
	Users       UserRepository
}
