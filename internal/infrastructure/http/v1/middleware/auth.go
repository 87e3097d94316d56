package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"compras/internal/core/apperror"
	appctx "compras/internal/core/context"
)

// JWTValidator validates an access token.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.UserContext, error)
}

func bearer(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Auth requires a valid bearer token and puts its user in the request
// context.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			abortUnauthorized(c, "cabeçalho Authorization ausente")
			return
		}
		token, ok := bearer(c)
		if !ok {
			abortUnauthorized(c, "cabeçalho Authorization inválido")
			return
		}

		user, err := validator.ValidateToken(token)
		if err != nil {
			_ = c.Error(apperror.NewUnauthorized("token inválido").WithCause(err))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
		c.Set("user_id", user.UserID)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
