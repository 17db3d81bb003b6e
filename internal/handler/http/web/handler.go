package web_http

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"walletapp/internal/app/users"
	"walletapp/internal/app/wallet"
	"walletapp/internal/session"
)

// SessionManager is the slice of the session store handlers use.
type SessionManager interface {
	Create(ctx context.Context, username string) (string, error)
	Destroy(ctx context.Context, token string) error
}

// CurrencySource provides the selectable currency codes for the signup
// and profile forms. An upstream failure yields an empty list, never a
// failed page.
type CurrencySource interface {
	Currencies(ctx context.Context) ([]string, error)
}

// PhotoSaver persists an uploaded profile photo and returns the stored
// filename.
type PhotoSaver interface {
	Save(src io.Reader, username, originalName string) (string, error)
}

type Handler struct {
	users      users.UserService
	wallet     wallet.WalletService
	sessions   SessionManager
	currencies CurrencySource
	photos     PhotoSaver
	maxUpload  int64
	logger     *zap.Logger
}

func NewHandler(
	userService users.UserService,
	walletService wallet.WalletService,
	sessions SessionManager,
	currencies CurrencySource,
	photos PhotoSaver,
	maxUpload int64,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		users:      userService,
		wallet:     walletService,
		sessions:   sessions,
		currencies: currencies,
		photos:     photos,
		maxUpload:  maxUpload,
		logger:     logger,
	}
}

// currencyChoices degrades to an empty list when the exchange API is
// unreachable; the form still renders.
func (h *Handler) currencyChoices(ctx context.Context) []string {
	codes, err := h.currencies.Currencies(ctx)
	if err != nil {
		h.logger.Error("Failed to load currency choices", zap.Error(err))
		return nil
	}
	return codes
}

func (h *Handler) principal(r *http.Request) string {
	username, _ := session.CurrentUser(r.Context())
	return username
}
