package users_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"walletapp/internal/domain"
)

type userRepository struct{}

func NewUserRepository() *userRepository {
	return &userRepository{}
}

func (r *userRepository) CreateTx(ctx context.Context, querier domain.Querier, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, profile_photo, default_currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := querier.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.ProfilePhoto,
		user.DefaultCurrency,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return domain.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user %s: %w", user.Username, err)
	}
	return nil
}

func (r *userRepository) GetByUsernameTx(ctx context.Context, querier domain.Querier, username string) (*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, profile_photo, default_currency, created_at, updated_at
		FROM users
		WHERE username = $1
	`
	return r.scanUser(querier.QueryRowContext(ctx, query, username))
}

func (r *userRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id string) (*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, profile_photo, default_currency, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return r.scanUser(querier.QueryRowContext(ctx, query, id))
}

func (r *userRepository) scanUser(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	var photo sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&photo,
		&user.DefaultCurrency,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if photo.Valid {
		user.ProfilePhoto = &photo.String
	}
	return user, nil
}

func (r *userRepository) UpdateTx(ctx context.Context, querier domain.Querier, user *domain.User) error {
	query := `
		UPDATE users
		SET username = $1, email = $2, profile_photo = $3, default_currency = $4, updated_at = $5
		WHERE id = $6
	`
	res, err := querier.ExecContext(ctx, query,
		user.Username,
		user.Email,
		user.ProfilePhoto,
		user.DefaultCurrency,
		time.Now(),
		user.ID,
	)
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return domain.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user %s: %w", user.ID, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) ListUsernamesTx(ctx context.Context, querier domain.Querier) ([]string, error) {
	query := `
		SELECT username
		FROM users
		ORDER BY username ASC
	`
	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list usernames: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}
		usernames = append(usernames, username)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usernames: %w", err)
	}
	return usernames, nil
}
