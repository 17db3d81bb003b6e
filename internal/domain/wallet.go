package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrWalletNotFound = errors.New("wallet not found")
var ErrInsufficientFunds = errors.New("insufficient funds")
var ErrInvalidAmount = errors.New("invalid amount")

// Wallet holds a user's balance denominated in the user's default
// currency. A user without a wallet row simply has a zero balance; the
// row is created on first top-up.
type Wallet struct {
	ID        string
	UserID    string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoundMoney rounds a monetary quantity to two fractional digits. Every
// amount written to a wallet or the transfer ledger goes through this.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
