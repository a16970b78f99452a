package ports

import (
	"context"

	"github.com/postpilot/content-system/internal/core/domain"
)

// OperatorRepository defines persistence for admin API operators.
type OperatorRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.Operator, error)
	Create(ctx context.Context, op *domain.Operator) (*domain.Operator, error)
}

// AuthService implements operator registration and login for the admin API.
type AuthService interface {
	Register(ctx context.Context, username, password, role string) (*domain.Operator, error)
	Login(ctx context.Context, username, password string) (string, *domain.Operator, error)
}
