package repository

import (
	"context"

	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para User.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// FirstActiveByRole devuelve el primer usuario activo con el rol (por fecha de alta).
	FirstActiveByRole(ctx context.Context, role entity.Role) (*entity.User, error)
}
