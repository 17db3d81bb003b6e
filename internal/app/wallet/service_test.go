package wallet

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"walletapp/internal/domain"
	"walletapp/internal/exchange"
	"walletapp/internal/util"
)

type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (t *fakeTx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, nil
}
func (t *fakeTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}
func (t *fakeTx) Commit() error   { t.committed = true; return nil }
func (t *fakeTx) Rollback() error { t.rolledBack = true; return nil }

type fakeDB struct {
	txs []*fakeTx
}

func (d *fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (d *fakeDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, nil
}
func (d *fakeDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}
func (d *fakeDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (domain.Tx, error) {
	tx := &fakeTx{}
	d.txs = append(d.txs, tx)
	return tx, nil
}

type fakeUserRepo struct {
	byUsername map[string]*domain.User
}

func (r *fakeUserRepo) CreateTx(ctx context.Context, q domain.Querier, user *domain.User) error {
	if _, ok := r.byUsername[user.Username]; ok {
		return domain.ErrUserAlreadyExists
	}
	r.byUsername[user.Username] = user
	return nil
}

func (r *fakeUserRepo) GetByUsernameTx(ctx context.Context, q domain.Querier, username string) (*domain.User, error) {
	user, ok := r.byUsername[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByIDTx(ctx context.Context, q domain.Querier, id string) (*domain.User, error) {
	for _, user := range r.byUsername {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateTx(ctx context.Context, q domain.Querier, user *domain.User) error {
	return nil
}

func (r *fakeUserRepo) ListUsernamesTx(ctx context.Context, q domain.Querier) ([]string, error) {
	var names []string
	for name := range r.byUsername {
		names = append(names, name)
	}
	return names, nil
}

type fakeWalletRepo struct {
	byUserID map[string]*domain.Wallet
}

func (r *fakeWalletRepo) CreateTx(ctx context.Context, q domain.Querier, wallet *domain.Wallet) error {
	r.byUserID[wallet.UserID] = wallet
	return nil
}

func (r *fakeWalletRepo) GetForUserTx(ctx context.Context, q domain.Querier, userID string) (*domain.Wallet, error) {
	wallet, ok := r.byUserID[userID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	copied := *wallet
	return &copied, nil
}

func (r *fakeWalletRepo) UpdateBalanceTx(ctx context.Context, q domain.Querier, walletID string, delta decimal.Decimal) error {
	for _, wallet := range r.byUserID {
		if wallet.ID == walletID {
			next := wallet.Balance.Add(delta)
			if next.IsNegative() {
				return domain.ErrInsufficientFunds
			}
			wallet.Balance = next
			return nil
		}
	}
	return domain.ErrWalletNotFound
}

type fakeTransferRepo struct {
	created []domain.Transfer
}

func (r *fakeTransferRepo) CreateTx(ctx context.Context, q domain.Querier, transfer *domain.Transfer) error {
	r.created = append(r.created, *transfer)
	return nil
}

func (r *fakeTransferRepo) ListForUserTx(ctx context.Context, q domain.Querier, userID string, limit int) ([]domain.Transfer, error) {
	var out []domain.Transfer
	for _, t := range r.created {
		if t.SenderID == userID || t.RecipientID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeOutboxRepo struct {
	created []domain.OutboxMessage
}

func (r *fakeOutboxRepo) CreateMessageTx(ctx context.Context, q domain.Querier, msg *domain.OutboxMessage) error {
	r.created = append(r.created, *msg)
	return nil
}

func (r *fakeOutboxRepo) GetPendingMessages(ctx context.Context, q domain.Querier, limit int) ([]domain.OutboxMessage, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) UpdateMessageStatusTx(ctx context.Context, q domain.Querier, id string, status domain.OutboxMessageStatus) error {
	return nil
}

type fakeRateSource struct {
	tables map[string]map[string]decimal.Decimal
	err    error
	calls  int
}

func (r *fakeRateSource) Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	table, ok := r.tables[base]
	if !ok {
		return nil, exchange.ErrUnavailable
	}
	return table, nil
}

type fixture struct {
	db        *fakeDB
	users     *fakeUserRepo
	wallets   *fakeWalletRepo
	transfers *fakeTransferRepo
	outbox    *fakeOutboxRepo
	rates     *fakeRateSource
	svc       WalletService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:        &fakeDB{},
		users:     &fakeUserRepo{byUsername: map[string]*domain.User{}},
		wallets:   &fakeWalletRepo{byUserID: map[string]*domain.Wallet{}},
		transfers: &fakeTransferRepo{},
		outbox:    &fakeOutboxRepo{},
		rates: &fakeRateSource{tables: map[string]map[string]decimal.Decimal{
			"USD": {
				"USD": decimal.NewFromInt(1),
				"EUR": decimal.NewFromFloat(0.90),
			},
		}},
	}
	f.svc = NewWalletService(f.db, f.users, f.wallets, f.transfers, f.outbox, f.rates, "transfer_events", zap.NewNop())
	return f
}

func (f *fixture) addUser(username, currency string) *domain.User {
	user := &domain.User{
		ID:              util.GenerateUUID(),
		Username:        username,
		Email:           username + "@example.com",
		DefaultCurrency: currency,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	f.users.byUsername[username] = user
	return user
}

func (f *fixture) addWallet(userID, balance string) *domain.Wallet {
	wallet := &domain.Wallet{
		ID:      util.GenerateUUID(),
		UserID:  userID,
		Balance: decimal.RequireFromString(balance),
	}
	f.wallets.byUserID[userID] = wallet
	return wallet
}

func TestTopUpAddsExactAmount(t *testing.T) {
	f := newFixture(t)
	user := f.addUser("alice", "USD")
	f.addWallet(user.ID, "10.50")

	wallet, err := f.svc.TopUp(context.Background(), "alice", decimal.RequireFromString("25.25"))
	require.NoError(t, err)

	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("35.75")),
		"balance = %s, want 35.75", wallet.Balance)
	assert.True(t, f.wallets.byUserID[user.ID].Balance.Equal(decimal.RequireFromString("35.75")))
	require.Len(t, f.db.txs, 1)
	assert.True(t, f.db.txs[0].committed)
}

func TestTopUpCreatesWalletLazily(t *testing.T) {
	f := newFixture(t)
	user := f.addUser("alice", "USD")

	wallet, err := f.svc.TopUp(context.Background(), "alice", decimal.NewFromInt(100))
	require.NoError(t, err)

	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(100)))
	require.Contains(t, f.wallets.byUserID, user.ID)
}

func TestTopUpRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)
	user := f.addUser("alice", "USD")
	f.addWallet(user.ID, "100.00")

	for _, amount := range []string{"0", "-5"} {
		_, err := f.svc.TopUp(context.Background(), "alice", decimal.RequireFromString(amount))
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "amount %s", amount)
	}
	assert.True(t, f.wallets.byUserID[user.ID].Balance.Equal(decimal.RequireFromString("100.00")))
	assert.Empty(t, f.db.txs, "no transaction should be opened for rejected amounts")
}

func TestTransferConvertsAndUpdatesBothWallets(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser("alice", "USD")
	bob := f.addUser("bob", "EUR")
	f.addWallet(alice.ID, "100.00")
	f.addWallet(bob.ID, "5.00")

	transfer, err := f.svc.Transfer(context.Background(), "alice", "bob", decimal.NewFromInt(40))
	require.NoError(t, err)

	assert.True(t, f.wallets.byUserID[alice.ID].Balance.Equal(decimal.RequireFromString("60.00")),
		"sender balance = %s, want 60.00", f.wallets.byUserID[alice.ID].Balance)
	assert.True(t, f.wallets.byUserID[bob.ID].Balance.Equal(decimal.RequireFromString("41.00")),
		"recipient balance = %s, want 41.00", f.wallets.byUserID[bob.ID].Balance)

	assert.True(t, transfer.Amount.Equal(decimal.NewFromInt(40)))
	assert.True(t, transfer.ConvertedAmount.Equal(decimal.NewFromInt(36)))
	assert.Equal(t, "USD", transfer.CurrencyFrom)
	assert.Equal(t, "EUR", transfer.CurrencyTo)

	require.Len(t, f.transfers.created, 1)
	require.Len(t, f.outbox.created, 1)
	assert.Equal(t, "transfer_completed", f.outbox.created[0].MessageType)
	assert.Equal(t, "transfer_events", f.outbox.created[0].Topic)
	assert.Equal(t, transfer.ID, f.outbox.created[0].AggregateID)

	require.Len(t, f.db.txs, 1)
	assert.True(t, f.db.txs[0].committed)
}

func TestTransferSameCurrencyUsesRateOne(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser("alice", "USD")
	carol := f.addUser("carol", "USD")
	f.addWallet(alice.ID, "50.00")
	f.addWallet(carol.ID, "0.00")

	transfer, err := f.svc.Transfer(context.Background(), "alice", "carol", decimal.NewFromInt(20))
	require.NoError(t, err)

	assert.True(t, transfer.Rate.Equal(decimal.NewFromInt(1)))
	assert.True(t, f.wallets.byUserID[carol.ID].Balance.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 0, f.rates.calls, "same-currency transfer must not hit the gateway")
}

func TestTransferRejectsInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser("alice", "USD")
	bob := f.addUser("bob", "EUR")
	f.addWallet(alice.ID, "100.00")
	f.addWallet(bob.ID, "5.00")

	_, err := f.svc.Transfer(context.Background(), "alice", "bob", decimal.NewFromInt(150))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.True(t, f.wallets.byUserID[alice.ID].Balance.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, f.wallets.byUserID[bob.ID].Balance.Equal(decimal.RequireFromString("5.00")))
	assert.Empty(t, f.transfers.created)
	assert.Empty(t, f.outbox.created)
	require.Len(t, f.db.txs, 1)
	assert.True(t, f.db.txs[0].rolledBack)
}

func TestTransferRejectsMissingSenderWallet(t *testing.T) {
	f := newFixture(t)
	f.addUser("alice", "USD")
	bob := f.addUser("bob", "EUR")
	f.addWallet(bob.ID, "5.00")

	// A sender without a wallet row has a zero balance.
	_, err := f.svc.Transfer(context.Background(), "alice", "bob", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.True(t, f.wallets.byUserID[bob.ID].Balance.Equal(decimal.RequireFromString("5.00")))
}

func TestTransferRejectsUnknownRecipient(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser("alice", "USD")
	f.addWallet(alice.ID, "100.00")

	_, err := f.svc.Transfer(context.Background(), "alice", "nobody", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.True(t, f.wallets.byUserID[alice.ID].Balance.Equal(decimal.RequireFromString("100.00")))
	assert.Empty(t, f.db.txs, "no transaction should be opened before recipient resolution")
}

func TestTransferRejectsNonPositiveAmountAndSelfTransfer(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser("alice", "USD")
	f.addWallet(alice.ID, "100.00")
	f.addUser("bob", "EUR")

	_, err := f.svc.Transfer(context.Background(), "alice", "bob", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Transfer(context.Background(), "alice", "bob", decimal.NewFromInt(-10))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.Transfer(context.Background(), "alice", "alice", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestTransferAbortsBeforeMutationWhenGatewayDown(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser("alice", "USD")
	bob := f.addUser("bob", "EUR")
	f.addWallet(alice.ID, "100.00")
	f.addWallet(bob.ID, "5.00")
	f.rates.err = exchange.ErrUnavailable

	_, err := f.svc.Transfer(context.Background(), "alice", "bob", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, exchange.ErrUnavailable)

	assert.True(t, f.wallets.byUserID[alice.ID].Balance.Equal(decimal.RequireFromString("100.00")))
	assert.True(t, f.wallets.byUserID[bob.ID].Balance.Equal(decimal.RequireFromString("5.00")))
	assert.Empty(t, f.db.txs, "no transaction may be opened when the gateway is unreachable")
}

func TestTransferRejectsMissingRateEntry(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser("alice", "USD")
	_ = f.addUser("bob", "JPY")
	f.addWallet(alice.ID, "100.00")

	_, err := f.svc.Transfer(context.Background(), "alice", "bob", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, exchange.ErrRateNotFound)
}

func TestTransferCreditRoundedToTwoDigits(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser("alice", "USD")
	bob := f.addUser("bob", "EUR")
	f.addWallet(alice.ID, "100.00")
	f.addWallet(bob.ID, "0.00")
	f.rates.tables["USD"]["EUR"] = decimal.RequireFromString("0.8888")

	transfer, err := f.svc.Transfer(context.Background(), "alice", "bob", decimal.RequireFromString("10.01"))
	require.NoError(t, err)

	// 10.01 * 0.8888 = 8.896688 -> 8.90
	assert.True(t, transfer.ConvertedAmount.Equal(decimal.RequireFromString("8.90")),
		"converted = %s, want 8.90", transfer.ConvertedAmount)
	assert.Equal(t, int32(-2), transfer.ConvertedAmount.Exponent())
}

func TestBalanceZeroWithoutWallet(t *testing.T) {
	f := newFixture(t)
	f.addUser("alice", "USD")

	balance, err := f.svc.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestHistoryListsBothDirections(t *testing.T) {
	f := newFixture(t)
	alice := f.addUser("alice", "USD")
	bob := f.addUser("bob", "USD")
	f.addWallet(alice.ID, "100.00")
	f.addWallet(bob.ID, "100.00")

	_, err := f.svc.Transfer(context.Background(), "alice", "bob", decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = f.svc.Transfer(context.Background(), "bob", "alice", decimal.NewFromInt(5))
	require.NoError(t, err)

	transfers, err := f.svc.History(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, transfers, 2)
}

func TestTransferUnknownSenderPropagates(t *testing.T) {
	f := newFixture(t)
	f.addUser("bob", "EUR")

	_, err := f.svc.Transfer(context.Background(), "ghost", "bob", decimal.NewFromInt(10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUserNotFound))
}
