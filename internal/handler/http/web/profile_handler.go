package web_http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"walletapp/internal/app/users"
	"walletapp/internal/domain"
	"walletapp/internal/upload"
)

type profileData struct {
	ProfileUsername string
	Email           string
	Photo           string
	Currency        string
	Currencies      []string
}

func (h *Handler) ProfilePageHandler(w http.ResponseWriter, r *http.Request) {
	username := h.principal(r)

	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		h.logger.Error("Failed to load profile", zap.String("username", username), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data := profileData{
		ProfileUsername: user.Username,
		Email:           user.Email,
		Currency:        user.DefaultCurrency,
		Currencies:      h.currencyChoices(r.Context()),
	}
	if user.ProfilePhoto != nil {
		data.Photo = *user.ProfilePhoto
	}
	h.render(w, r, "profile", "Profile", username, data)
}

func (h *Handler) ProfileUpdateHandler(w http.ResponseWriter, r *http.Request) {
	username := h.principal(r)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		setFlash(w, "Invalid form submission")
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	newUsername := r.FormValue("username")
	email := r.FormValue("email")
	currency := r.FormValue("default_currency")
	if newUsername == "" || email == "" || currency == "" {
		setFlash(w, "All fields are required")
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	var photoRef *string
	if file, header, err := r.FormFile("profile_photo"); err == nil {
		defer file.Close()
		filename, err := h.photos.Save(file, newUsername, header.Filename)
		if err != nil {
			if errors.Is(err, upload.ErrUnsupportedFileType) {
				setFlash(w, "Select images only!")
				http.Redirect(w, r, "/profile", http.StatusSeeOther)
				return
			}
			h.logger.Error("Failed to save profile photo", zap.String("username", username), zap.Error(err))
			setFlash(w, "Could not save profile photo")
			http.Redirect(w, r, "/profile", http.StatusSeeOther)
			return
		}
		photoRef = &filename
	}

	updated, err := h.users.UpdateProfile(r.Context(), username, users.ProfileUpdate{
		Username:        newUsername,
		Email:           email,
		ProfilePhoto:    photoRef,
		DefaultCurrency: currency,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			setFlash(w, "Username or email already taken")
			http.Redirect(w, r, "/profile", http.StatusSeeOther)
			return
		}
		h.logger.Error("Profile update failed", zap.String("username", username), zap.Error(err))
		setFlash(w, "Something went wrong, please try again")
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	// The username is the session principal; renaming invalidates the
	// current session, so send the user back through login.
	if updated.Username != username {
		setFlash(w, "Profile updated, please log in again")
		h.LogoutHandler(w, r)
		return
	}

	setFlash(w, "Profile updated")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
