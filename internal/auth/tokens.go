package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"librarysvc/internal/library"
	"librarysvc/internal/redisx"
)

// TokenStore holds opaque bearer tokens mapped to user ids. Tokens expire on
// their own; the store never needs sweeping.
type TokenStore interface {
	SaveAccess(ctx context.Context, token string, userID int64) error
	SaveRefresh(ctx context.Context, token string, userID int64) error
	// UserForAccess resolves an access token, library.ErrUnauthenticated if
	// the token is unknown or expired.
	UserForAccess(ctx context.Context, token string) (int64, error)
	UserForRefresh(ctx context.Context, token string) (int64, error)
	DeleteRefresh(ctx context.Context, token string) error
}

// RedisTokens implements TokenStore on Redis with TTL-based expiry.
type RedisTokens struct{ RDB *redis.Client }

func (s *RedisTokens) SaveAccess(ctx context.Context, token string, userID int64) error {
	key := fmt.Sprintf(redisx.KeyAccessToken, token)
	return s.RDB.Set(ctx, key, userID, redisx.TTLAccessToken).Err()
}

func (s *RedisTokens) SaveRefresh(ctx context.Context, token string, userID int64) error {
	key := fmt.Sprintf(redisx.KeyRefreshToken, token)
	return s.RDB.Set(ctx, key, userID, redisx.TTLRefreshToken).Err()
}

func (s *RedisTokens) UserForAccess(ctx context.Context, token string) (int64, error) {
	return s.lookup(ctx, fmt.Sprintf(redisx.KeyAccessToken, token))
}

func (s *RedisTokens) UserForRefresh(ctx context.Context, token string) (int64, error) {
	return s.lookup(ctx, fmt.Sprintf(redisx.KeyRefreshToken, token))
}

func (s *RedisTokens) DeleteRefresh(ctx context.Context, token string) error {
	return s.RDB.Del(ctx, fmt.Sprintf(redisx.KeyRefreshToken, token)).Err()
}

func (s *RedisTokens) lookup(ctx context.Context, key string) (int64, error) {
	v, err := s.RDB.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, library.ErrUnauthenticated
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt token entry %s: %w", key, err)
	}
	return id, nil
}
