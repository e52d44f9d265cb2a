package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	domainErrors "github.com/your-org/telegram-auth/internal/domain/errors"
	"github.com/your-org/telegram-auth/internal/domain/models"
)

const codeKeyPrefix = "login_code:"

// LoginCodeRepositoryRedis stores login codes as keys with a server-side
// TTL, so expiry needs no sweeper: an expired code simply stops
// existing. GETDEL makes consumption single-winner under concurrency.
type LoginCodeRepositoryRedis struct {
	client *redis.Client
	logger *zap.Logger
}

func NewLoginCodeRepositoryRedis(client *redis.Client, logger *zap.Logger) *LoginCodeRepositoryRedis {
	return &LoginCodeRepositoryRedis{client: client, logger: logger}
}

func (r *LoginCodeRepositoryRedis) Create(ctx context.Context, code *models.LoginCode) error {
	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%w: login code already expired at creation", domainErrors.ErrStorage)
	}
	key := codeKeyPrefix + code.Code
	value := strconv.FormatInt(code.TelegramID, 10)
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Error("Failed to store login code", zap.Error(err))
		return fmt.Errorf("%w: %v", domainErrors.ErrStorage, err)
	}
	return nil
}

func (r *LoginCodeRepositoryRedis) Consume(ctx context.Context, code string) (int64, error) {
	value, err := r.client.GetDel(ctx, codeKeyPrefix+code).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, domainErrors.ErrCodeNotFound
		}
		r.logger.Error("Failed to consume login code", zap.Error(err))
		return 0, fmt.Errorf("%w: %v", domainErrors.ErrStorage, err)
	}
	telegramID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: corrupt login code record: %v", domainErrors.ErrStorage, err)
	}
	return telegramID, nil
}
