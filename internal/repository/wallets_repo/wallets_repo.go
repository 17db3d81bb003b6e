package wallets_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"walletapp/internal/domain"
)

type walletRepository struct{}

func NewWalletRepository() *walletRepository {
	return &walletRepository{}
}

func (r *walletRepository) CreateTx(ctx context.Context, querier domain.Querier, wallet *domain.Wallet) error {
	query := `
		INSERT INTO wallets (id, user_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := querier.ExecContext(ctx, query,
		wallet.ID,
		wallet.UserID,
		wallet.Balance,
		wallet.CreatedAt,
		wallet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create wallet for user %s: %w", wallet.UserID, err)
	}
	return nil
}

// GetForUserTx locks the wallet row for the rest of the transaction.
// Absence is an expected state for a never-funded account.
func (r *walletRepository) GetForUserTx(ctx context.Context, querier domain.Querier, userID string) (*domain.Wallet, error) {
	query := `
		SELECT id, user_id, balance, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
		FOR UPDATE
	`
	wallet := &domain.Wallet{}
	err := querier.QueryRowContext(ctx, query, userID).Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.Balance,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet for user %s: %w", userID, err)
	}
	return wallet, nil
}

func (r *walletRepository) UpdateBalanceTx(ctx context.Context, querier domain.Querier, walletID string, delta decimal.Decimal) error {
	if delta.IsNegative() {
		checkBalanceQuery := `SELECT balance FROM wallets WHERE id = $1 FOR UPDATE`
		var currentBalance decimal.Decimal
		err := querier.QueryRowContext(ctx, checkBalanceQuery, walletID).Scan(&currentBalance)
		if err != nil {
			if err == sql.ErrNoRows {
				return domain.ErrWalletNotFound
			}
			return fmt.Errorf("failed to check current balance for wallet %s: %w", walletID, err)
		}
		if currentBalance.Add(delta).IsNegative() {
			return domain.ErrInsufficientFunds
		}
	}

	query := `
		UPDATE wallets
		SET balance = balance + $1, updated_at = $2
		WHERE id = $3
	`
	res, err := querier.ExecContext(ctx, query, delta, time.Now(), walletID)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance for %s: %w", walletID, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}
