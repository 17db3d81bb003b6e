package wallets_repo

import (
	"context"

	"github.com/shopspring/decimal"

	"walletapp/internal/domain"
)

type WalletRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, wallet *domain.Wallet) error
	GetForUserTx(ctx context.Context, querier domain.Querier, userID string) (*domain.Wallet, error)
	UpdateBalanceTx(ctx context.Context, querier domain.Querier, walletID string, delta decimal.Decimal) error
}
