package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/telegram-auth/internal/domain/models"
	"github.com/your-org/telegram-auth/internal/domain/repository"
)

// LoginCodeService mints and redeems single-use login codes for the
// bot-initiated flow. Codes are UUIDv4 strings (122 bits of entropy)
// with a short expiry.
type LoginCodeService struct {
	codes  repository.LoginCodeRepository
	ttl    time.Duration
	logger *zap.Logger
}

func NewLoginCodeService(codes repository.LoginCodeRepository, ttl time.Duration, logger *zap.Logger) *LoginCodeService {
	return &LoginCodeService{codes: codes, ttl: ttl, logger: logger}
}

// Issue generates a fresh code bound to telegramID. Authorization is
// the caller's concern: only the bot, which holds the pre-shared API
// secret, may reach this.
func (s *LoginCodeService) Issue(ctx context.Context, telegramID int64) (string, error) {
	code := &models.LoginCode{
		Code:       uuid.NewString(),
		TelegramID: telegramID,
		ExpiresAt:  time.Now().Add(s.ttl),
	}
	if err := s.codes.Create(ctx, code); err != nil {
		s.logger.Error("Failed to issue login code", zap.Error(err), zap.Int64("telegram_id", telegramID))
		return "", err
	}
	s.logger.Info("Login code issued", zap.Int64("telegram_id", telegramID))
	return code.Code, nil
}

// Consume atomically resolves and deletes the code. At most one of any
// number of concurrent calls for the same code succeeds; the rest see
// ErrCodeNotFound, as do calls after expiry.
func (s *LoginCodeService) Consume(ctx context.Context, code string) (int64, error) {
	telegramID, err := s.codes.Consume(ctx, code)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Login code consumed", zap.Int64("telegram_id", telegramID))
	return telegramID, nil
}
