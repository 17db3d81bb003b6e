package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"walletapp/internal/domain"
	"walletapp/internal/exchange"
	"walletapp/internal/outbox"
	"walletapp/internal/repository/outbox_repo"
	"walletapp/internal/repository/transfers_repo"
	"walletapp/internal/repository/users_repo"
	"walletapp/internal/repository/wallets_repo"
	"walletapp/internal/util"
)

const historyLimit = 50

// RateSource is the slice of the exchange client the service uses.
type RateSource interface {
	Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

type WalletService interface {
	TopUp(ctx context.Context, username string, amount decimal.Decimal) (*domain.Wallet, error)
	Transfer(ctx context.Context, senderUsername, recipientUsername string, amount decimal.Decimal) (*domain.Transfer, error)
	Balance(ctx context.Context, username string) (decimal.Decimal, error)
	History(ctx context.Context, username string) ([]domain.Transfer, error)
}

type walletService struct {
	db           domain.DB
	userRepo     users_repo.UserRepository
	walletRepo   wallets_repo.WalletRepository
	transferRepo transfers_repo.TransferRepository
	outboxRepo   outbox_repo.OutboxRepository
	rates        RateSource
	eventsTopic  string
	logger       *zap.Logger
}

func NewWalletService(
	db domain.DB,
	userRepo users_repo.UserRepository,
	walletRepo wallets_repo.WalletRepository,
	transferRepo transfers_repo.TransferRepository,
	outboxRepo outbox_repo.OutboxRepository,
	rates RateSource,
	eventsTopic string,
	logger *zap.Logger,
) WalletService {
	return &walletService{
		db:           db,
		userRepo:     userRepo,
		walletRepo:   walletRepo,
		transferRepo: transferRepo,
		outboxRepo:   outboxRepo,
		rates:        rates,
		eventsTopic:  eventsTopic,
		logger:       logger,
	}
}

func (s *walletService) TopUp(ctx context.Context, username string, amount decimal.Decimal) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	amount = domain.RoundMoney(amount)

	user, err := s.userRepo.GetByUsernameTx(ctx, s.db, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", username, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transaction for top-up", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	wallet, err := s.lockOrCreateWalletTx(ctx, tx, user.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := s.walletRepo.UpdateBalanceTx(ctx, tx, wallet.ID, amount); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to credit wallet %s: %w", wallet.ID, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit top-up transaction", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	wallet.Balance = wallet.Balance.Add(amount)
	s.logger.Info("Wallet topped up",
		zap.String("user_id", user.ID),
		zap.String("wallet_id", wallet.ID),
		zap.String("amount", amount.String()),
		zap.String("new_balance", wallet.Balance.String()))
	return wallet, nil
}

func (s *walletService) Transfer(ctx context.Context, senderUsername, recipientUsername string, amount decimal.Decimal) (*domain.Transfer, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	amount = domain.RoundMoney(amount)

	if senderUsername == recipientUsername {
		return nil, domain.ErrInvalidAmount
	}

	sender, err := s.userRepo.GetByUsernameTx(ctx, s.db, senderUsername)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender %s: %w", senderUsername, err)
	}
	recipient, err := s.userRepo.GetByUsernameTx(ctx, s.db, recipientUsername)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load recipient %s: %w", recipientUsername, err)
	}

	// The rate is resolved before any wallet row is touched so an
	// unreachable gateway can never leave a half-applied transfer.
	rate, err := s.resolveRate(ctx, sender.DefaultCurrency, recipient.DefaultCurrency)
	if err != nil {
		return nil, err
	}

	debit := amount
	credit := domain.RoundMoney(amount.Mul(rate))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to begin transfer transaction",
			zap.String("sender", senderUsername), zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic during transfer, rolling back",
				zap.String("sender", senderUsername), zap.Any("panic", r))
			tx.Rollback()
			panic(r)
		}
	}()

	transfer, err := s.transferTx(ctx, tx, sender, recipient, debit, credit, rate)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Failed to roll back transfer transaction",
				zap.String("sender", senderUsername), zap.Error(rbErr))
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transfer transaction",
			zap.String("sender", senderUsername), zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Transfer committed",
		zap.String("transfer_id", transfer.ID),
		zap.String("sender_id", sender.ID),
		zap.String("recipient_id", recipient.ID),
		zap.String("amount", debit.String()),
		zap.String("converted_amount", credit.String()),
		zap.String("rate", rate.String()))
	return transfer, nil
}

func (s *walletService) transferTx(
	ctx context.Context,
	tx domain.Tx,
	sender, recipient *domain.User,
	debit, credit, rate decimal.Decimal,
) (*domain.Transfer, error) {
	senderWallet, recipientWallet, err := s.lockWalletPairTx(ctx, tx, sender.ID, recipient.ID)
	if err != nil {
		return nil, err
	}

	if senderWallet.Balance.LessThan(debit) {
		s.logger.Warn("Transfer rejected, insufficient funds",
			zap.String("sender_id", sender.ID),
			zap.String("balance", senderWallet.Balance.String()),
			zap.String("amount", debit.String()))
		return nil, domain.ErrInsufficientFunds
	}

	if err := s.walletRepo.UpdateBalanceTx(ctx, tx, recipientWallet.ID, credit); err != nil {
		return nil, fmt.Errorf("failed to credit recipient wallet %s: %w", recipientWallet.ID, err)
	}
	if err := s.walletRepo.UpdateBalanceTx(ctx, tx, senderWallet.ID, debit.Neg()); err != nil {
		return nil, fmt.Errorf("failed to debit sender wallet %s: %w", senderWallet.ID, err)
	}

	now := time.Now()
	transfer := &domain.Transfer{
		ID:              util.GenerateUUID(),
		SenderID:        sender.ID,
		RecipientID:     recipient.ID,
		Amount:          debit,
		ConvertedAmount: credit,
		Rate:            rate,
		CurrencyFrom:    sender.DefaultCurrency,
		CurrencyTo:      recipient.DefaultCurrency,
		CreatedAt:       now,
	}
	if err := s.transferRepo.CreateTx(ctx, tx, transfer); err != nil {
		return nil, fmt.Errorf("failed to record transfer: %w", err)
	}

	payload, err := outbox.PrepareTransferCompletedPayload(transfer)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare transfer event payload: %w", err)
	}
	outboxMsg := &domain.OutboxMessage{
		ID:            util.GenerateUUID(),
		AggregateID:   transfer.ID,
		AggregateType: "transfer",
		MessageType:   "transfer_completed",
		Topic:         s.eventsTopic,
		Key:           sender.ID,
		Payload:       payload,
		Status:        domain.OutboxStatusPending,
		CreatedAt:     now,
	}
	if err := s.outboxRepo.CreateMessageTx(ctx, tx, outboxMsg); err != nil {
		return nil, fmt.Errorf("failed to create outbox message for transfer %s: %w", transfer.ID, err)
	}

	return transfer, nil
}

// lockWalletPairTx locks both wallet rows in deterministic user-id
// order so two opposite transfers between the same pair cannot
// deadlock. The sender's wallet is never created here: a missing row
// means a zero balance, which the caller rejects.
func (s *walletService) lockWalletPairTx(ctx context.Context, tx domain.Tx, senderID, recipientID string) (*domain.Wallet, *domain.Wallet, error) {
	var senderWallet, recipientWallet *domain.Wallet
	var err error

	lockSender := func() error {
		senderWallet, err = s.walletRepo.GetForUserTx(ctx, tx, senderID)
		if err != nil {
			if errors.Is(err, domain.ErrWalletNotFound) {
				// Zero balance cannot cover any positive amount.
				return domain.ErrInsufficientFunds
			}
			return fmt.Errorf("failed to lock sender wallet: %w", err)
		}
		return nil
	}
	lockRecipient := func() error {
		recipientWallet, err = s.lockOrCreateWalletTx(ctx, tx, recipientID)
		if err != nil {
			return err
		}
		return nil
	}

	if senderID < recipientID {
		err = lockSender()
		if err == nil {
			err = lockRecipient()
		}
	} else {
		err = lockRecipient()
		if err == nil {
			err = lockSender()
		}
	}
	if err != nil {
		return nil, nil, err
	}
	return senderWallet, recipientWallet, nil
}

func (s *walletService) lockOrCreateWalletTx(ctx context.Context, tx domain.Tx, userID string) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetForUserTx(ctx, tx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return nil, fmt.Errorf("failed to lock wallet for user %s: %w", userID, err)
	}

	now := time.Now()
	wallet = &domain.Wallet{
		ID:        util.GenerateUUID(),
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.walletRepo.CreateTx(ctx, tx, wallet); err != nil {
		return nil, fmt.Errorf("failed to create wallet for user %s: %w", userID, err)
	}
	return wallet, nil
}

func (s *walletService) resolveRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	rates, err := s.rates.Rates(ctx, from)
	if err != nil {
		s.logger.Error("Failed to fetch conversion rates", zap.String("base", from), zap.Error(err))
		return decimal.Decimal{}, err
	}
	rate, ok := rates[to]
	if !ok {
		s.logger.Error("Conversion rate missing from table", zap.String("base", from), zap.String("target", to))
		return decimal.Decimal{}, fmt.Errorf("%w: %s -> %s", exchange.ErrRateNotFound, from, to)
	}
	return rate, nil
}

func (s *walletService) Balance(ctx context.Context, username string) (decimal.Decimal, error) {
	user, err := s.userRepo.GetByUsernameTx(ctx, s.db, username)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to load user %s: %w", username, err)
	}

	wallet, err := s.walletRepo.GetForUserTx(ctx, s.db, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Decimal{}, fmt.Errorf("failed to get wallet for user %s: %w", username, err)
	}
	return wallet.Balance, nil
}

func (s *walletService) History(ctx context.Context, username string) ([]domain.Transfer, error) {
	user, err := s.userRepo.GetByUsernameTx(ctx, s.db, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", username, err)
	}
	transfers, err := s.transferRepo.ListForUserTx(ctx, s.db, user.ID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers for user %s: %w", username, err)
	}
	return transfers, nil
}
