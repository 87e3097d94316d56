package context

import "context"

// UserContext is the authenticated user of a request. CompanyID is the
// company every read and write of the request is scoped to.
type UserContext struct {
	UserID      string
	CompanyID   string
	Email       string
	Roles       []string
	Permissions []string
	IsAdmin     bool
	SessionID   string
}

type userContextKey struct{}

func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns the request user, or nil outside a request.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

func GetCompanyID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.CompanyID
	}
	return ""
}

// WithCompany rescopes the user of ctx to companyID. The stored user is
// copied, never mutated.
func WithCompany(ctx context.Context, companyID string) context.Context {
	scoped := UserContext{CompanyID: companyID}
	if u := GetUser(ctx); u != nil {
		scoped = *u
		scoped.CompanyID = companyID
	}
	return WithUser(ctx, &scoped)
}
