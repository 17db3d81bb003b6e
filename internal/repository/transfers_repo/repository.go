package transfers_repo

import (
	"context"

	"walletapp/internal/domain"
)

type TransferRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, transfer *domain.Transfer) error
	ListForUserTx(ctx context.Context, querier domain.Querier, userID string, limit int) ([]domain.Transfer, error)
}
