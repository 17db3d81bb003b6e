package users

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"walletapp/internal/domain"
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
	byEmail    map[string]*domain.User
	updateErr  error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byUsername: map[string]*domain.User{},
		byEmail:    map[string]*domain.User{},
	}
}

func (r *fakeUserRepo) CreateTx(ctx context.Context, q domain.Querier, user *domain.User) error {
	if _, ok := r.byUsername[user.Username]; ok {
		return domain.ErrUserAlreadyExists
	}
	if _, ok := r.byEmail[user.Email]; ok {
		return domain.ErrUserAlreadyExists
	}
	r.byUsername[user.Username] = user
	r.byEmail[user.Email] = user
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
	if r.updateErr != nil {
		return r.updateErr
	}
	for name, existing := range r.byUsername {
		if existing.ID == user.ID {
			delete(r.byUsername, name)
			r.byUsername[user.Username] = user
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (r *fakeUserRepo) ListUsernamesTx(ctx context.Context, q domain.Querier) ([]string, error) {
	var names []string
	for name := range r.byUsername {
		names = append(names, name)
	}
	return names, nil
}

func newService(repo *fakeUserRepo) (UserService, *fakeDB) {
	db := &fakeDB{}
	return NewUserService(db, repo, zap.NewNop()), db
}

func TestSignupHashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newService(repo)

	user, err := svc.Signup(context.Background(), NewUser{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "s3cret",
		DefaultCurrency: "USD",
	})
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret")))
	assert.NotEmpty(t, user.ID)
}

func TestSignupRejectsDuplicateUsername(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newService(repo)

	_, err := svc.Signup(context.Background(), NewUser{
		Username: "alice", Email: "alice@example.com", Password: "pw", DefaultCurrency: "USD",
	})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), NewUser{
		Username: "alice", Email: "other@example.com", Password: "pw", DefaultCurrency: "USD",
	})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	// The original account must still be usable.
	_, err = svc.Authenticate(context.Background(), "alice", "pw")
	assert.NoError(t, err)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newService(repo)

	_, err := svc.Signup(context.Background(), NewUser{
		Username: "alice", Email: "shared@example.com", Password: "pw", DefaultCurrency: "USD",
	})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), NewUser{
		Username: "bob", Email: "shared@example.com", Password: "pw", DefaultCurrency: "USD",
	})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	assert.NotContains(t, repo.byUsername, "bob", "no partial row may be left behind")
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newService(repo)

	_, err := svc.Signup(context.Background(), NewUser{
		Username: "alice", Email: "alice@example.com", Password: "right", DefaultCurrency: "USD",
	})
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newService(repo)

	_, err := svc.Authenticate(context.Background(), "ghost", "pw")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials,
		"unknown user and wrong password must be indistinguishable")
}

func TestUpdateProfilePersistsFields(t *testing.T) {
	repo := newFakeUserRepo()
	svc, db := newService(repo)

	_, err := svc.Signup(context.Background(), NewUser{
		Username: "alice", Email: "alice@example.com", Password: "pw", DefaultCurrency: "USD",
	})
	require.NoError(t, err)

	photo := "alice2_pic.png"
	updated, err := svc.UpdateProfile(context.Background(), "alice", ProfileUpdate{
		Username:        "alice2",
		Email:           "alice2@example.com",
		ProfilePhoto:    &photo,
		DefaultCurrency: "EUR",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice2", updated.Username)
	assert.Equal(t, "EUR", updated.DefaultCurrency)
	require.NotNil(t, updated.ProfilePhoto)
	assert.Equal(t, photo, *updated.ProfilePhoto)
	require.NotEmpty(t, db.txs)
	assert.True(t, db.txs[len(db.txs)-1].committed)
}

func TestUpdateProfileKeepsPhotoWhenNotReplaced(t *testing.T) {
	repo := newFakeUserRepo()
	svc, _ := newService(repo)

	photo := "alice_pic.png"
	_, err := svc.Signup(context.Background(), NewUser{
		Username: "alice", Email: "alice@example.com", Password: "pw",
		ProfilePhoto: &photo, DefaultCurrency: "USD",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(context.Background(), "alice", ProfileUpdate{
		Username: "alice", Email: "alice@example.com", DefaultCurrency: "USD",
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ProfilePhoto)
	assert.Equal(t, photo, *updated.ProfilePhoto)
}

func TestUpdateProfileMapsUniqueCollision(t *testing.T) {
	repo := newFakeUserRepo()
	svc, db := newService(repo)

	_, err := svc.Signup(context.Background(), NewUser{
		Username: "alice", Email: "alice@example.com", Password: "pw", DefaultCurrency: "USD",
	})
	require.NoError(t, err)
	repo.updateErr = domain.ErrUserAlreadyExists

	_, err = svc.UpdateProfile(context.Background(), "alice", ProfileUpdate{
		Username: "bob", Email: "alice@example.com", DefaultCurrency: "USD",
	})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	require.NotEmpty(t, db.txs)
	assert.True(t, db.txs[len(db.txs)-1].rolledBack)
}
