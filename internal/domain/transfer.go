package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is one row of the append-only transfer ledger. Amount is in
// the sender's currency, ConvertedAmount in the recipient's.
type Transfer struct {
	ID              string
	SenderID        string
	RecipientID     string
	Amount          decimal.Decimal
	ConvertedAmount decimal.Decimal
	Rate            decimal.Decimal
	CurrencyFrom    string
	CurrencyTo      string
	CreatedAt       time.Time
}
