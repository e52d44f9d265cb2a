package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/telegram-auth/internal/config"
	domainErrors "github.com/your-org/telegram-auth/internal/domain/errors"
)

func newTestTokenService(ttl time.Duration) *TokenService {
	return NewTokenService(&config.JWTConfig{
		Secret:   "test-session-secret",
		TokenTTL: ttl,
		Issuer:   "telegram-auth",
	})
}

func TestTokenService_IssueVerifyRoundtrip(t *testing.T) {
	svc := newTestTokenService(24 * time.Hour)

	token, err := svc.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	telegramID, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), telegramID)
}

func TestTokenService_VerifyExpired(t *testing.T) {
	svc := newTestTokenService(-time.Minute)

	token, err := svc.Issue(42)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidToken)
}

func TestTokenService_VerifyWrongSecret(t *testing.T) {
	issuer := newTestTokenService(24 * time.Hour)
	verifier := NewTokenService(&config.JWTConfig{
		Secret:   "another-secret",
		TokenTTL: 24 * time.Hour,
		Issuer:   "telegram-auth",
	})

	token, err := issuer.Issue(42)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidToken)
}

func TestTokenService_VerifyTampered(t *testing.T) {
	svc := newTestTokenService(24 * time.Hour)

	token, err := svc.Issue(42)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = svc.Verify(tampered)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidToken)
}

func TestTokenService_VerifyGarbage(t *testing.T) {
	svc := newTestTokenService(24 * time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.Verify(token)
		assert.ErrorIs(t, err, domainErrors.ErrInvalidToken, "token %q", token)
	}
}

// Expired and forged tokens must be indistinguishable to the caller.
func TestTokenService_UniformInvalidOutcome(t *testing.T) {
	expired := newTestTokenService(-time.Minute)
	valid := newTestTokenService(24 * time.Hour)

	expiredToken, err := expired.Issue(1)
	require.NoError(t, err)
	forgedToken, err := valid.Issue(1)
	require.NoError(t, err)
	forgedToken = forgedToken[:len(forgedToken)-2] + "xx"

	_, errExpired := valid.Verify(expiredToken)
	_, errForged := valid.Verify(forgedToken)
	assert.Equal(t, errExpired, errForged)
}
