package users_repo

import (
	"context"

	"walletapp/internal/domain"
)

type UserRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, user *domain.User) error
	GetByUsernameTx(ctx context.Context, querier domain.Querier, username string) (*domain.User, error)
	GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.User, error)
	UpdateTx(ctx context.Context, querier domain.Querier, user *domain.User) error
	ListUsernamesTx(ctx context.Context, querier domain.Querier) ([]string, error)
}
