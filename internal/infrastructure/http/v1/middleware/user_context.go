package middleware

import (
	"github.com/gin-gonic/gin"

	"compras/internal/core/apperror"
	appctx "compras/internal/core/context"
)

// HeaderCompanyID selects the company of a request.
const HeaderCompanyID = "X-Company-ID"

// CompanyScope settles the company a request works on. Users are bound to
// the company in their token; admins may pick another one with
// X-Company-ID. Runs after Auth.
func CompanyScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := appctx.GetUser(c.Request.Context())
		if user == nil {
			abortUnauthorized(c, "autenticação necessária")
			return
		}

		requested := c.GetHeader(HeaderCompanyID)
		switch {
		case requested == "" || requested == user.CompanyID:
		case user.IsAdmin || user.CompanyID == "":
			c.Request = c.Request.WithContext(appctx.WithCompany(c.Request.Context(), requested))
		default:
			_ = c.Error(apperror.NewForbidden("empresa não permitida para o usuário").
				WithDetail("company_id", requested))
			c.Abort()
			return
		}

		if appctx.GetCompanyID(c.Request.Context()) == "" {
			_ = c.Error(apperror.NewValidation("empresa não informada").
				WithDetail("header", HeaderCompanyID))
			c.Abort()
			return
		}
		c.Next()
	}
}
