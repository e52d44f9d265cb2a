package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/your-org/telegram-auth/internal/config"
	"github.com/your-org/telegram-auth/internal/handler/http/middleware"
	"github.com/your-org/telegram-auth/internal/service"
	"github.com/your-org/telegram-auth/internal/ws"
)

// NewRouter wires every route of the service onto a gin engine.
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authHandler *AuthHandler,
	tokens *service.TokenService,
	wsHandler *ws.Handler,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Login flows.
	router.POST("/auth/telegram", authHandler.PostTelegramAuth)
	router.GET("/auth/telegram", authHandler.GetTelegramAuth)
	router.GET("/bot-login", authHandler.BotLogin)
	router.GET("/logout", authHandler.Logout)

	// Bot-facing API, guarded by the pre-shared secret.
	router.POST("/api/create-login-code",
		middleware.BotTokenMiddleware(cfg.Telegram.BotAPISecret),
		authHandler.CreateLoginCode,
	)

	// Session-guarded API.
	api := router.Group("/api", middleware.AuthMiddleware(tokens))
	api.GET("/ping", authHandler.Ping)

	// Push channel handshake.
	router.GET("/ws", func(c *gin.Context) {
		wsHandler.ServeWS(c.Writer, c.Request)
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Server.StaticDir != "" {
		router.Static("/static", cfg.Server.StaticDir)
		router.StaticFile("/", cfg.Server.StaticDir+"/index.html")
		router.StaticFile("/dashboard.html", cfg.Server.StaticDir+"/dashboard.html")
	}

	return router
}
