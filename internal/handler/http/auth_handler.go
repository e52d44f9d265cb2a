package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/your-org/telegram-auth/internal/domain/errors"
	"github.com/your-org/telegram-auth/internal/domain/models"
	"github.com/your-org/telegram-auth/internal/service"
	"github.com/your-org/telegram-auth/internal/ws"
)

const (
	dashboardPath = "/dashboard.html"
	landingPath   = "/"
)

// AuthHandler exposes the two login flows, logout and the protected
// example route.
type AuthHandler struct {
	auth   *service.AuthService
	tokens *service.TokenService
	hub    *ws.Hub
	logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, tokens *service.TokenService, hub *ws.Hub, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, hub: hub, logger: logger}
}

// PostTelegramAuth handles the widget's JSON callback. The decoder
// keeps numbers as json.Number so the verifier reconstructs the check
// string byte-for-byte as Telegram signed it.
func (h *AuthHandler) PostTelegramAuth(c *gin.Context) {
	var data models.TelegramAuthData
	decoder := json.NewDecoder(c.Request.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&data); err != nil {
		RespondWithError(c, http.StatusUnauthorized, "invalid hash", h.logger)
		return
	}

	user, token, err := h.auth.AuthenticateWidget(c.Request.Context(), data)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"token": token, "telegram_id": user.TelegramID})
}

// GetTelegramAuth is the redirect-mode widget variant: same payload in
// the query string, and a redirect instead of a JSON body on success.
func (h *AuthHandler) GetTelegramAuth(c *gin.Context) {
	data := make(models.TelegramAuthData)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			data[key] = values[0]
		}
	}

	_, token, err := h.auth.AuthenticateWidget(c.Request.Context(), data)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	c.Redirect(http.StatusFound, dashboardPath)
}

type createLoginCodeRequest struct {
	TelegramID int64 `json:"telegram_id" binding:"required"`
}

// CreateLoginCode mints a single-use login link for the bot. The
// x-bot-token check happens in middleware before this runs.
func (h *AuthHandler) CreateLoginCode(c *gin.Context) {
	var req createLoginCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "telegram_id is required", h.logger)
		return
	}

	url, err := h.auth.CreateLoginCode(c.Request.Context(), req.TelegramID)
	if err != nil {
		RespondWithError(c, http.StatusInternalServerError, "internal error", h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// BotLogin redeems a login code. Exactly one terminal response per
// request: either an error status or the cookie-plus-redirect, never
// both.
func (h *AuthHandler) BotLogin(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		RespondWithError(c, http.StatusBadRequest, "code is required", h.logger)
		return
	}

	_, token, err := h.auth.RedeemLoginCode(c.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrCodeNotFound):
			RespondWithError(c, http.StatusGone, "code expired or invalid", h.logger)
		case domainErrors.IsStorage(err):
			RespondWithError(c, http.StatusInternalServerError, "internal error", h.logger)
		default:
			RespondWithError(c, http.StatusInternalServerError, "internal error", h.logger)
		}
		return
	}

	h.setSessionCookie(c, token)
	c.Redirect(http.StatusFound, dashboardPath)
}

// Logout clears the session cookie and pushes a best-effort
// "logged_out" event to the identity's live channels. The token itself
// stays valid until natural expiry; there is no revocation list.
func (h *AuthHandler) Logout(c *gin.Context) {
	if cookie, err := c.Cookie(service.SessionCookieName); err == nil {
		if telegramID, err := h.tokens.Verify(cookie); err == nil {
			h.hub.NotifyUser(telegramID, ws.Event{
				Type:   ws.EventTypeAuthStatus,
				Status: ws.StatusLoggedOut,
			})
			h.auth.NotifyLogout(c.Request.Context(), telegramID)
		}
	}

	h.clearSessionCookie(c)
	c.Redirect(http.StatusFound, landingPath)
}

// Ping is the protected example route; AuthMiddleware has already
// verified the session.
func (h *AuthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AuthHandler) respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainErrors.ErrInvalidHash):
		RespondWithError(c, http.StatusUnauthorized, "invalid hash", h.logger)
	case domainErrors.IsStorage(err):
		RespondWithError(c, http.StatusInternalServerError, "internal error", h.logger)
	default:
		RespondWithError(c, http.StatusInternalServerError, "internal error", h.logger)
	}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(service.SessionCookieName, token, int(h.tokens.TTL().Seconds()), "/", "", false, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(service.SessionCookieName, "", -1, "/", "", false, true)
}
