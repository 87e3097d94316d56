package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"compras/internal/core/apperror"
	"compras/pkg/logger"
)

// ErrorHandler renders the last handler error as {code, message, details}.
// Internal causes are logged and never sent to the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		ctx := c.Request.Context()

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				logger.Error(ctx, "request failed", "code", appErr.Code, "error", err)
			} else if appErr.Err != nil {
				logger.Warn(ctx, "request rejected", "code", appErr.Code, "cause", appErr.Err)
			}
			c.JSON(appErr.HTTPStatus, gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			})
			return
		}

		logger.Error(ctx, "unhandled error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    apperror.CodeInternal,
			"message": "Erro interno do servidor",
			"details": map[string]any{"request_id": c.GetString("request_id")},
		})
	}
}
