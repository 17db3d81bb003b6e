package web_http

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"walletapp/internal/domain"
	"walletapp/internal/exchange"
)

type homeData struct {
	Balance  string
	Currency string
}

func (h *Handler) HomePageHandler(w http.ResponseWriter, r *http.Request) {
	username := h.principal(r)

	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		h.logger.Error("Failed to load user for home page", zap.String("username", username), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	balance, err := h.wallet.Balance(r.Context(), username)
	if err != nil {
		h.logger.Error("Failed to load balance", zap.String("username", username), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "home", "Home", username, homeData{
		Balance:  balance.StringFixed(2),
		Currency: user.DefaultCurrency,
	})
}

type walletData struct {
	Balance   string
	Currency  string
	Usernames []string
	Transfers []domain.Transfer
}

func (h *Handler) WalletPageHandler(w http.ResponseWriter, r *http.Request) {
	username := h.principal(r)

	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		h.logger.Error("Failed to load user for wallet page", zap.String("username", username), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	balance, err := h.wallet.Balance(r.Context(), username)
	if err != nil {
		h.logger.Error("Failed to load balance", zap.String("username", username), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	usernames, err := h.users.ListUsernames(r.Context())
	if err != nil {
		h.logger.Error("Failed to list usernames", zap.String("username", username), zap.Error(err))
		usernames = nil
	}
	transfers, err := h.wallet.History(r.Context(), username)
	if err != nil {
		h.logger.Error("Failed to load transfer history", zap.String("username", username), zap.Error(err))
		transfers = nil
	}

	h.render(w, r, "wallet", "Wallet", username, walletData{
		Balance:   balance.StringFixed(2),
		Currency:  user.DefaultCurrency,
		Usernames: usernames,
		Transfers: transfers,
	})
}

func (h *Handler) TopUpHandler(w http.ResponseWriter, r *http.Request) {
	username := h.principal(r)

	if err := r.ParseForm(); err != nil {
		setFlash(w, "Invalid form submission")
		http.Redirect(w, r, "/wallet", http.StatusSeeOther)
		return
	}

	amount, err := decimal.NewFromString(r.FormValue("amount"))
	if err != nil {
		setFlash(w, "Invalid amount")
		http.Redirect(w, r, "/wallet", http.StatusSeeOther)
		return
	}

	if _, err := h.wallet.TopUp(r.Context(), username, amount); err != nil {
		if errors.Is(err, domain.ErrInvalidAmount) {
			setFlash(w, "Invalid amount")
			http.Redirect(w, r, "/wallet", http.StatusSeeOther)
			return
		}
		h.logger.Error("Top-up failed", zap.String("username", username), zap.Error(err))
		setFlash(w, "Something went wrong, please try again")
		http.Redirect(w, r, "/wallet", http.StatusSeeOther)
		return
	}

	setFlash(w, "Money added to wallet")
	http.Redirect(w, r, "/wallet", http.StatusSeeOther)
}

func (h *Handler) TransferHandler(w http.ResponseWriter, r *http.Request) {
	username := h.principal(r)

	if err := r.ParseForm(); err != nil {
		setFlash(w, "Invalid form submission")
		http.Redirect(w, r, "/wallet", http.StatusSeeOther)
		return
	}

	recipient := r.FormValue("transfer_amount_to_user")
	amount, err := decimal.NewFromString(r.FormValue("transfer_amount"))
	if err != nil || recipient == "" {
		setFlash(w, "Invalid amount")
		http.Redirect(w, r, "/wallet", http.StatusSeeOther)
		return
	}

	_, err = h.wallet.Transfer(r.Context(), username, recipient, amount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount):
			setFlash(w, "Invalid amount")
		case errors.Is(err, domain.ErrInsufficientFunds):
			setFlash(w, "Invalid amount: not enough money in wallet")
		case errors.Is(err, domain.ErrUserNotFound):
			setFlash(w, "Recipient not found")
		case errors.Is(err, exchange.ErrUnavailable), errors.Is(err, exchange.ErrRateNotFound):
			setFlash(w, "Currency conversion is unavailable, try again later")
		default:
			h.logger.Error("Transfer failed",
				zap.String("sender", username),
				zap.String("recipient", recipient),
				zap.Error(err))
			setFlash(w, "Something went wrong, please try again")
		}
		http.Redirect(w, r, "/wallet", http.StatusSeeOther)
		return
	}

	setFlash(w, "Transfer completed")
	http.Redirect(w, r, "/wallet", http.StatusSeeOther)
}
