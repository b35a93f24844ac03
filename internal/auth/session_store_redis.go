package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "lookatme:session:"

// RedisSessionStore keeps refresh tokens in Redis with a TTL matching their expiry.
type RedisSessionStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

type redisSession struct {
	UserID    int64     `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewRedisSessionStore wraps an existing Redis client.
func NewRedisSessionStore(client redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client, now: time.Now}
}

// NewRedisClient parses a redis:// URL (or bare host:port) and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Save stores the session until it expires.
func (s *RedisSessionStore) Save(ctx context.Context, session Session) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return ErrRefreshTokenExpired
	}

	payload, err := json.Marshal(redisSession{UserID: session.UserID, ExpiresAt: session.ExpiresAt.UTC()})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.client.Set(ctx, redisSessionPrefix+session.RefreshToken, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Find retrieves a session by refresh token.
func (s *RedisSessionStore) Find(ctx context.Context, refreshToken string) (Session, error) {
	raw, err := s.client.Get(ctx, redisSessionPrefix+refreshToken).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var stored redisSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}

	return Session{RefreshToken: refreshToken, UserID: stored.UserID, ExpiresAt: stored.ExpiresAt}, nil
}

// Delete removes the session associated with the refresh token.
func (s *RedisSessionStore) Delete(ctx context.Context, refreshToken string) error {
	n, err := s.client.Del(ctx, redisSessionPrefix+refreshToken).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

var (
	_ SessionStore = (*RedisSessionStore)(nil)
	_ SessionStore = (*InMemorySessionStore)(nil)
)
