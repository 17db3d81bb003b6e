package domain

import "time"

// TransferCompletedEvent is published to Kafka (via the outbox) after a
// transfer commits. Monetary fields are decimal strings to keep exact
// values on the wire.
type TransferCompletedEvent struct {
	TransferID      string    `json:"transfer_id"`
	SenderID        string    `json:"sender_id"`
	RecipientID     string    `json:"recipient_id"`
	Amount          string    `json:"amount"`
	ConvertedAmount string    `json:"converted_amount"`
	Rate            string    `json:"rate"`
	CurrencyFrom    string    `json:"currency_from"`
	CurrencyTo      string    `json:"currency_to"`
	Timestamp       time.Time `json:"timestamp"`
}
