package web_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go.uber.org/zap"

	"walletapp/internal/session"
)

// RegisterRoutes mounts the full HTTP surface. Wallet and profile
// routes sit behind the session gate; auth pages do not.
func RegisterRoutes(r chi.Router, h *Handler, store session.PrincipalStore, assetsDir string, l *zap.Logger) {
	r.Route("/health", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("walletapp is healthy!"))
		})
	})

	r.Get("/signup", h.SignupPageHandler)
	r.Post("/signup", h.SignupHandler)
	r.Get("/login", h.LoginPageHandler)
	r.Post("/login", h.LoginHandler)
	r.Post("/logout", h.LogoutHandler)

	fileServer := http.StripPrefix("/assets/", http.FileServer(http.Dir(assetsDir)))
	r.Get("/assets/*", fileServer.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(session.Require(store, l.With(zap.String("component", "SessionGate"))))

		r.Get("/", h.HomePageHandler)
		r.Get("/profile", h.ProfilePageHandler)
		r.Post("/profile", h.ProfileUpdateHandler)
		r.Get("/wallet", h.WalletPageHandler)
		r.Post("/wallet/topup", h.TopUpHandler)
		r.Post("/wallet/transfer", h.TransferHandler)
	})
}
