package entity

import "time"

// Role rol de un usuario.
type Role string

// Roles válidos para User.
const (
	RoleAdmin          Role = "admin"
	RoleProductManager Role = "product_manager"
	RoleStockKeeper    Role = "stock_keeper"
	RoleEmployee       Role = "employee"
)

// Valid indica si el rol es conocido.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleProductManager, RoleStockKeeper, RoleEmployee:
		return true
	}
	return false
}

// Estados de usuario.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User representa un usuario del sistema; también es un posible tenedor de stock.
type User struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         Role
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor quien ejecuta una operación (extraído del token).
type Actor struct {
	UserID string
	Role   Role
}
