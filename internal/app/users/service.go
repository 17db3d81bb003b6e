package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"walletapp/internal/domain"
	"walletapp/internal/repository/users_repo"
	"walletapp/internal/util"
)

type NewUser struct {
	Username        string
	Email           string
	Password        string
	ProfilePhoto    *string
	DefaultCurrency string
}

type ProfileUpdate struct {
	Username        string
	Email           string
	ProfilePhoto    *string
	DefaultCurrency string
}

type UserService interface {
	Signup(ctx context.Context, input NewUser) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateProfile(ctx context.Context, username string, input ProfileUpdate) (*domain.User, error)
	ListUsernames(ctx context.Context) ([]string, error)
}

type userService struct {
	db       domain.DB
	userRepo users_repo.UserRepository
	logger   *zap.Logger
}

func NewUserService(db domain.DB, userRepo users_repo.UserRepository, logger *zap.Logger) UserService {
	return &userService{
		db:       db,
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *userService) Signup(ctx context.Context, input NewUser) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:              util.GenerateUUID(),
		Username:        input.Username,
		Email:           input.Email,
		PasswordHash:    string(hash),
		ProfilePhoto:    input.ProfilePhoto,
		DefaultCurrency: input.DefaultCurrency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.userRepo.CreateTx(ctx, s.db, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			s.logger.Warn("Signup rejected, user already exists", zap.String("username", input.Username))
			return nil, domain.ErrUserAlreadyExists
		}
		s.logger.Error("Failed to create user", zap.String("username", input.Username), zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User signed up", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsernameTx(ctx, s.db, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Same outcome as a wrong password so login probing
			// cannot distinguish the two.
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user %s: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("Login rejected, bad password", zap.String("username", username))
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsernameTx(ctx, s.db, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", username, err)
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, username string, input ProfileUpdate) (*domain.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	user, err := s.userRepo.GetByUsernameTx(ctx, tx, username)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %s for update: %w", username, err)
	}

	user.Username = input.Username
	user.Email = input.Email
	user.DefaultCurrency = input.DefaultCurrency
	if input.ProfilePhoto != nil {
		user.ProfilePhoto = input.ProfilePhoto
	}

	if err := s.userRepo.UpdateTx(ctx, tx, user); err != nil {
		tx.Rollback()
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			s.logger.Warn("Profile update collides with existing username or email",
				zap.String("user_id", user.ID), zap.String("new_username", input.Username))
			return nil, domain.ErrUserAlreadyExists
		}
		s.logger.Error("Failed to update user", zap.String("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Profile updated", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *userService) ListUsernames(ctx context.Context) ([]string, error) {
	usernames, err := s.userRepo.ListUsernamesTx(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to list usernames: %w", err)
	}
	return usernames, nil
}
