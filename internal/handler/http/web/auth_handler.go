package web_http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"walletapp/internal/app/users"
	"walletapp/internal/domain"
	"walletapp/internal/session"
	"walletapp/internal/upload"
)

type signupData struct {
	Currencies []string
}

func (h *Handler) SignupPageHandler(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "signup", "Sign up", "", signupData{Currencies: h.currencyChoices(r.Context())})
}

func (h *Handler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		setFlash(w, "Invalid form submission")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	username := r.FormValue("username")
	email := r.FormValue("email")
	password := r.FormValue("password")
	confirm := r.FormValue("confirm")
	currency := r.FormValue("default_currency")

	if username == "" || email == "" || password == "" || currency == "" {
		setFlash(w, "All fields are required")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}
	if password != confirm {
		setFlash(w, "Passwords must match")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	var photoRef *string
	if file, header, err := r.FormFile("profile_photo"); err == nil {
		defer file.Close()
		filename, err := h.photos.Save(file, username, header.Filename)
		if err != nil {
			if errors.Is(err, upload.ErrUnsupportedFileType) {
				setFlash(w, "Select images only!")
				http.Redirect(w, r, "/signup", http.StatusSeeOther)
				return
			}
			h.logger.Error("Failed to save profile photo", zap.String("username", username), zap.Error(err))
			setFlash(w, "Could not save profile photo")
			http.Redirect(w, r, "/signup", http.StatusSeeOther)
			return
		}
		photoRef = &filename
	}

	_, err := h.users.Signup(r.Context(), users.NewUser{
		Username:        username,
		Email:           email,
		Password:        password,
		ProfilePhoto:    photoRef,
		DefaultCurrency: currency,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			setFlash(w, "User already exists")
			http.Redirect(w, r, "/signup", http.StatusSeeOther)
			return
		}
		h.logger.Error("Signup failed", zap.String("username", username), zap.Error(err))
		setFlash(w, "Something went wrong, please try again")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
		return
	}

	setFlash(w, "Account created, please log in")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login", "Log in", "", nil)
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		setFlash(w, "Invalid form submission")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		setFlash(w, "Username and password are required")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	user, err := h.users.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			setFlash(w, "Invalid username or password")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.logger.Error("Login failed", zap.String("username", username), zap.Error(err))
		setFlash(w, "Something went wrong, please try again")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	token, err := h.sessions.Create(r.Context(), user.Username)
	if err != nil {
		h.logger.Error("Failed to create session", zap.String("username", username), zap.Error(err))
		setFlash(w, "Something went wrong, please try again")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if err := h.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			h.logger.Error("Failed to destroy session", zap.Error(err))
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
