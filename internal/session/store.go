package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"walletapp/internal/util"
)

var ErrUnauthenticated = errors.New("no authenticated session")

const keyPrefix = "session:"

// Store issues opaque session tokens backed by Redis with a TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(addr, password string, ttl time.Duration) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Create(ctx context.Context, username string) (string, error) {
	token := util.GenerateUUID()
	if err := s.client.Set(ctx, keyPrefix+token, username, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return token, nil
}

func (s *Store) Username(ctx context.Context, token string) (string, error) {
	username, err := s.client.Get(ctx, keyPrefix+token).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrUnauthenticated
		}
		return "", fmt.Errorf("failed to look up session: %w", err)
	}
	return username, nil
}

func (s *Store) Destroy(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
