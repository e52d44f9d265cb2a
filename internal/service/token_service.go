package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/your-org/telegram-auth/internal/config"
	domainErrors "github.com/your-org/telegram-auth/internal/domain/errors"
)

// SessionCookieName is the cookie the session token travels in, for
// both HTTP requests and the websocket handshake.
const SessionCookieName = "jwt"

// SessionClaims binds a verified Telegram identity to an issuance time.
type SessionClaims struct {
	TelegramID int64 `json:"telegram_id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies stateless session tokens. Tokens are
// HMAC-signed with the session secret (a signing domain separate from
// the bot token) and stay valid for their full lifetime: there is no
// server-side revocation list, logout is cookie clearing plus a push
// notification.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenService(cfg *config.JWTConfig) *TokenService {
	return &TokenService{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TokenTTL,
		issuer: cfg.Issuer,
	}
}

// Issue signs a session token for telegramID, valid for the configured
// window (24 hours by default).
func (s *TokenService) Issue(telegramID int64) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		TelegramID: telegramID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    s.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the bound identity.
// Every failure mode collapses into ErrInvalidToken; callers cannot
// tell a forged token from an expired one.
func (s *TokenService) Verify(tokenString string) (int64, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, domainErrors.ErrInvalidToken
	}
	if claims.TelegramID <= 0 {
		return 0, domainErrors.ErrInvalidToken
	}
	return claims.TelegramID, nil
}

// TTL reports the configured validity window, used for cookie max-age.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
