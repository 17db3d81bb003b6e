package domain

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserAlreadyExists = errors.New("user already exists")
var ErrInvalidCredentials = errors.New("invalid credentials")

type User struct {
	ID              string
	Username        string
	Email           string
	PasswordHash    string
	ProfilePhoto    *string
	DefaultCurrency string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
