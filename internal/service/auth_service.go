package service

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/your-org/telegram-auth/internal/config"
	domainErrors "github.com/your-org/telegram-auth/internal/domain/errors"
	"github.com/your-org/telegram-auth/internal/domain/models"
	"github.com/your-org/telegram-auth/internal/domain/repository"
	"github.com/your-org/telegram-auth/internal/events/kafka"
	"github.com/your-org/telegram-auth/internal/infrastructure/security"
	"github.com/your-org/telegram-auth/internal/utils/metrics"
)

// AuthService composes payload verification, identity persistence,
// login codes and token issuance into the two login flows.
type AuthService struct {
	cfg      *config.Config
	logger   *zap.Logger
	users    repository.UserRepository
	codes    *LoginCodeService
	tokens   *TokenService
	producer *kafka.Producer // optional, nil when kafka is not configured
}

func NewAuthService(
	cfg *config.Config,
	logger *zap.Logger,
	users repository.UserRepository,
	codes *LoginCodeService,
	tokens *TokenService,
	producer *kafka.Producer,
) *AuthService {
	return &AuthService{
		cfg:      cfg,
		logger:   logger,
		users:    users,
		codes:    codes,
		tokens:   tokens,
		producer: producer,
	}
}

// AuthenticateWidget implements the widget-direct flow: verify the
// signed payload, upsert the identity (display attributes are
// last-write-wins) and issue a session token.
func (s *AuthService) AuthenticateWidget(ctx context.Context, data models.TelegramAuthData) (*models.User, string, error) {
	if !security.VerifyWidgetPayload(data, s.cfg.Telegram.BotToken) {
		s.logger.Warn("Telegram widget payload failed verification")
		metrics.LoginAttemptsTotal.WithLabelValues("widget", "invalid_hash").Inc()
		return nil, "", domainErrors.ErrInvalidHash
	}

	profile, err := security.ProfileFromPayload(data)
	if err != nil {
		s.logger.Warn("Verified payload carries an unusable profile", zap.Error(err))
		metrics.LoginAttemptsTotal.WithLabelValues("widget", "invalid_hash").Inc()
		return nil, "", domainErrors.ErrInvalidHash
	}

	user, err := s.users.Upsert(ctx, &models.User{
		TelegramID: profile.ID,
		Username:   profile.Username,
		FirstName:  profile.FirstName,
		LastName:   profile.LastName,
		PhotoURL:   profile.PhotoURL,
	})
	if err != nil {
		s.logger.Error("Failed to upsert user", zap.Error(err), zap.Int64("telegram_id", profile.ID))
		metrics.LoginAttemptsTotal.WithLabelValues("widget", "storage_error").Inc()
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.TelegramID)
	if err != nil {
		s.logger.Error("Failed to issue session token", zap.Error(err), zap.Int64("telegram_id", user.TelegramID))
		return nil, "", domainErrors.ErrInternal
	}

	s.publishLogin(ctx, user.TelegramID, "widget")
	metrics.LoginAttemptsTotal.WithLabelValues("widget", "success").Inc()
	s.logger.Info("Widget authentication successful", zap.Int64("telegram_id", user.TelegramID))
	return user, token, nil
}

// CreateLoginCode mints a single-use code for telegramID and returns
// the absolute redemption URL the bot embeds in its inline keyboard.
func (s *AuthService) CreateLoginCode(ctx context.Context, telegramID int64) (string, error) {
	code, err := s.codes.Issue(ctx, telegramID)
	if err != nil {
		return "", err
	}
	metrics.LoginCodesIssuedTotal.Inc()
	return fmt.Sprintf("%s/bot-login?code=%s", s.cfg.App.BaseURL, url.QueryEscape(code)), nil
}

// RedeemLoginCode implements the bot-code flow: consume the code
// exactly once, lazily create the identity if the widget flow never saw
// it, and issue a session token.
func (s *AuthService) RedeemLoginCode(ctx context.Context, code string) (*models.User, string, error) {
	telegramID, err := s.codes.Consume(ctx, code)
	if err != nil {
		if domainErrors.IsStorage(err) {
			metrics.LoginAttemptsTotal.WithLabelValues("bot_code", "storage_error").Inc()
		} else {
			metrics.LoginAttemptsTotal.WithLabelValues("bot_code", "rejected").Inc()
		}
		return nil, "", err
	}

	user, err := s.users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if domainErrors.IsStorage(err) {
			metrics.LoginAttemptsTotal.WithLabelValues("bot_code", "storage_error").Inc()
			return nil, "", err
		}
		// The bot flow can authenticate a user the widget has never
		// seen; only the numeric id is known at this point.
		user, err = s.users.Upsert(ctx, &models.User{TelegramID: telegramID})
		if err != nil {
			metrics.LoginAttemptsTotal.WithLabelValues("bot_code", "storage_error").Inc()
			return nil, "", err
		}
	}

	token, err := s.tokens.Issue(user.TelegramID)
	if err != nil {
		s.logger.Error("Failed to issue session token", zap.Error(err), zap.Int64("telegram_id", user.TelegramID))
		return nil, "", domainErrors.ErrInternal
	}

	s.publishLogin(ctx, user.TelegramID, "bot_code")
	metrics.LoginAttemptsTotal.WithLabelValues("bot_code", "success").Inc()
	s.logger.Info("Bot-code authentication successful", zap.Int64("telegram_id", user.TelegramID))
	return user, token, nil
}

// NotifyLogout publishes the logout event. The session token itself
// stays cryptographically valid until expiry; this is bookkeeping, not
// revocation.
func (s *AuthService) NotifyLogout(ctx context.Context, telegramID int64) {
	if s.producer == nil {
		return
	}
	_ = s.producer.PublishAuthEvent(ctx, kafka.AuthEvent{
		Type:       kafka.EventUserLoggedOut,
		TelegramID: telegramID,
	})
}

func (s *AuthService) publishLogin(ctx context.Context, telegramID int64, flow string) {
	if s.producer == nil {
		return
	}
	_ = s.producer.PublishAuthEvent(ctx, kafka.AuthEvent{
		Type:       kafka.EventUserLoggedIn,
		TelegramID: telegramID,
		Flow:       flow,
	})
}
