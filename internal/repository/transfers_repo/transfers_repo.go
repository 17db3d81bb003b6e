package transfers_repo

import (
	"context"
	"fmt"

	"walletapp/internal/domain"
)

type transferRepository struct{}

func NewTransferRepository() *transferRepository {
	return &transferRepository{}
}

func (r *transferRepository) CreateTx(ctx context.Context, querier domain.Querier, transfer *domain.Transfer) error {
	query := `
		INSERT INTO transfers (id, sender_id, recipient_id, amount, converted_amount, rate, currency_from, currency_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := querier.ExecContext(ctx, query,
		transfer.ID,
		transfer.SenderID,
		transfer.RecipientID,
		transfer.Amount,
		transfer.ConvertedAmount,
		transfer.Rate,
		transfer.CurrencyFrom,
		transfer.CurrencyTo,
		transfer.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transfer record: %w", err)
	}
	return nil
}

func (r *transferRepository) ListForUserTx(ctx context.Context, querier domain.Querier, userID string, limit int) ([]domain.Transfer, error) {
	query := `
		SELECT id, sender_id, recipient_id, amount, converted_amount, rate, currency_from, currency_to, created_at
		FROM transfers
		WHERE sender_id = $1 OR recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := querier.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers for user %s: %w", userID, err)
	}
	defer rows.Close()

	var transfers []domain.Transfer
	for rows.Next() {
		t := domain.Transfer{}
		err := rows.Scan(
			&t.ID,
			&t.SenderID,
			&t.RecipientID,
			&t.Amount,
			&t.ConvertedAmount,
			&t.Rate,
			&t.CurrencyFrom,
			&t.CurrencyTo,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}
	return transfers, nil
}
