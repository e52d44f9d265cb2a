package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/telegram-auth/internal/service"
	"github.com/your-org/telegram-auth/internal/utils/metrics"
)

// ContextKeyTelegramID is where the verified identity lands in the gin
// context for downstream handlers.
const ContextKeyTelegramID = "telegram_id"

// AuthMiddleware verifies the session cookie and attaches the bound
// identity to the request context. Signature mismatch and expiry both
// produce the same 401.
func AuthMiddleware(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(service.SessionCookieName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		telegramID, err := tokens.Verify(cookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ContextKeyTelegramID, telegramID)
		metrics.AuthenticatedRequestsTotal.Inc()
		c.Next()
	}
}

// BotTokenMiddleware guards the code-minting endpoint: the caller must
// present the pre-shared bot API secret in the x-bot-token header.
func BotTokenMiddleware(botAPISecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("x-bot-token")
		if subtle.ConstantTimeCompare([]byte(header), []byte(botAPISecret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// TelegramIDFromContext retrieves the identity set by AuthMiddleware.
func TelegramIDFromContext(c *gin.Context) (int64, bool) {
	value, exists := c.Get(ContextKeyTelegramID)
	if !exists {
		return 0, false
	}
	id, ok := value.(int64)
	return id, ok
}
