package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResponseError is the uniform failure body. The message names the
// error category only and never says which specific check failed.
type ResponseError struct {
	Error string `json:"error"`
}

// RespondWithError logs and sends a failure response.
func RespondWithError(c *gin.Context, statusCode int, message string, logger *zap.Logger) {
	logger.Warn("API error response",
		zap.Int("status_code", statusCode),
		zap.String("error_message", message),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)
	c.JSON(statusCode, ResponseError{Error: message})
}
