package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"walletapp/internal/domain"
	kafka_infra "walletapp/internal/infrastructure/kafka"
	"walletapp/internal/repository/outbox_repo"
)

const pollBatchSize = 10

// Processor polls pending outbox rows and publishes them to Kafka,
// marking each row SENT in its own transaction.
type Processor struct {
	db            domain.DB
	outboxRepo    outbox_repo.OutboxRepository
	kafkaProducer kafka_infra.Producer
	pollInterval  time.Duration
	pollTimeout   time.Duration
	logger        *zap.Logger
}

func NewProcessor(
	db domain.DB,
	outboxRepo outbox_repo.OutboxRepository,
	kafkaProducer kafka_infra.Producer,
	pollInterval time.Duration,
	pollTimeout time.Duration,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		db:            db,
		outboxRepo:    outboxRepo,
		kafkaProducer: kafkaProducer,
		pollInterval:  pollInterval,
		pollTimeout:   pollTimeout,
		logger:        logger,
	}
}

func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Starting outbox processor...")
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor stopping.")
			return
		case <-ticker.C:
			p.processOutboxMessages(ctx)
		}
	}
}

func (p *Processor) processOutboxMessages(ctx context.Context) {
	dbQueryCtx, cancel := context.WithTimeout(ctx, p.pollTimeout)
	defer cancel()

	messages, err := p.outboxRepo.GetPendingMessages(dbQueryCtx, p.db, pollBatchSize)
	if err != nil {
		if err == sql.ErrNoRows {
			return
		}
		p.logger.Error("Failed to get pending outbox messages", zap.Error(err))
		return
	}

	if len(messages) == 0 {
		return
	}
	p.logger.Info("Found pending outbox messages", zap.Int("count", len(messages)))

	for _, msg := range messages {
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			p.logger.Error("Failed to begin transaction for outbox message", zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}

		if err := p.kafkaProducer.Produce(ctx, msg.Topic, msg.Key, msg.Payload); err != nil {
			p.logger.Error("Failed to send message to Kafka",
				zap.String("message_id", msg.ID),
				zap.String("topic", msg.Topic),
				zap.Error(err))
			tx.Rollback()
			continue
		}

		if err := p.outboxRepo.UpdateMessageStatusTx(ctx, tx, msg.ID, domain.OutboxStatusSent); err != nil {
			p.logger.Error("Failed to update outbox message status to SENT", zap.String("message_id", msg.ID), zap.Error(err))
			tx.Rollback()
			continue
		}

		if err := tx.Commit(); err != nil {
			p.logger.Error("Failed to commit transaction for outbox message", zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}

		p.logger.Info("Outbox message published",
			zap.String("message_id", msg.ID),
			zap.String("topic", msg.Topic),
			zap.String("message_type", msg.MessageType))
	}
}

// PrepareTransferCompletedPayload serializes the event written to the
// outbox alongside a committed transfer.
func PrepareTransferCompletedPayload(transfer *domain.Transfer) ([]byte, error) {
	event := domain.TransferCompletedEvent{
		TransferID:      transfer.ID,
		SenderID:        transfer.SenderID,
		RecipientID:     transfer.RecipientID,
		Amount:          transfer.Amount.StringFixed(2),
		ConvertedAmount: transfer.ConvertedAmount.StringFixed(2),
		Rate:            transfer.Rate.String(),
		CurrencyFrom:    transfer.CurrencyFrom,
		CurrencyTo:      transfer.CurrencyTo,
		Timestamp:       transfer.CreatedAt,
	}
	return json.Marshal(event)
}
