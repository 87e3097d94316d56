// Package auth validates the access tokens issued by the identity provider
// and turns them into a request user.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "compras/internal/core/context"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		AccessTokenTTL: time.Hour,
	}
}

// AppMetadata is the provider-managed part of the token. Older tokens carry
// the company there instead of at the top level.
type AppMetadata struct {
	CompanyID string   `json:"company_id,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// Claims are the access token claims. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email       string      `json:"email"`
	Role        string      `json:"role,omitempty"`
	CompanyID   string      `json:"company_id,omitempty"`
	Roles       []string    `json:"roles,omitempty"`
	Permissions []string    `json:"perms,omitempty"`
	IsAdmin     bool        `json:"is_admin,omitempty"`
	SessionID   string      `json:"session_id,omitempty"`
	AppMetadata AppMetadata `json:"app_metadata,omitempty"`
}

// User converts the claims into the request user.
func (c *Claims) User() *appctx.UserContext {
	companyID := c.CompanyID
	if companyID == "" {
		companyID = c.AppMetadata.CompanyID
	}
	roles := c.Roles
	if len(roles) == 0 {
		roles = c.AppMetadata.Roles
	}
	if c.Role != "" && len(roles) == 0 {
		roles = []string{c.Role}
	}
	return &appctx.UserContext{
		UserID:      c.Subject,
		CompanyID:   companyID,
		Email:       c.Email,
		Roles:       roles,
		Permissions: c.Permissions,
		IsAdmin:     c.IsAdmin,
		SessionID:   c.SessionID,
	}
}

// JWTService handles JWT operations.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config}
}

// GenerateAccessToken signs a token for user. The provider issues real
// tokens; this one serves local runs and tests.
func (s *JWTService) GenerateAccessToken(user appctx.UserContext) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:       user.Email,
		CompanyID:   user.CompanyID,
		Roles:       user.Roles,
		Permissions: user.Permissions,
		IsAdmin:     user.IsAdmin,
		SessionID:   user.SessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a token and returns its user.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims.User(), nil
}
