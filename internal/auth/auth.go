package auth

import (
	"context"
	"fmt"
	"time"

	bizErrors "github.com/elakshat/mystamoura-e-commerce-launch/internal/errors"

	"github.com/go-kratos/kratos/v2/middleware"
	kjwt "github.com/go-kratos/kratos/v2/middleware/auth/jwt"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/golang-jwt/jwt/v5"
)

const authorizationHeader = "Authorization"

// Role 用户角色
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Claims 管理端 JWT 声明
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// NewToken 签发 HS256 令牌
func NewToken(secret, subject string, role Role, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is empty")
	}
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Server 校验 Bearer 令牌并把声明放入 context
func Server(secret string) middleware.Middleware {
	return kjwt.Server(
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		kjwt.WithSigningMethod(jwt.SigningMethodHS256),
		kjwt.WithClaims(func() jwt.Claims { return &Claims{} }),
	)
}

// Optional 有 Authorization 头时校验令牌，没有时按游客放行
func Optional(secret string) middleware.Middleware {
	verify := Server(secret)
	return func(handler middleware.Handler) middleware.Handler {
		verified := verify(handler)
		return func(ctx context.Context, req any) (any, error) {
			if tr, ok := transport.FromServerContext(ctx); ok && tr.RequestHeader().Get(authorizationHeader) != "" {
				return verified(ctx, req)
			}
			return handler(ctx, req)
		}
	}
}

// RequireAdmin rejects requests whose token does not carry role=admin.
func RequireAdmin() middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req any) (any, error) {
			if !IsAdmin(ctx) {
				return nil, bizErrors.Forbidden("Admin access required")
			}
			return handler(ctx, req)
		}
	}
}

// ClaimsFromContext 从 context 中获取声明
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := kjwt.FromContext(ctx)
	if !ok {
		return nil, false
	}
	claims, ok := c.(*Claims)
	return claims, ok
}

// GetUIDFromContext 从 context 中获取用户ID (JWT subject)
func GetUIDFromContext(ctx context.Context) (string, bool) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// IsAdmin 判断当前用户是否为管理员
func IsAdmin(ctx context.Context) bool {
	claims, ok := ClaimsFromContext(ctx)
	return ok && claims.Role == RoleAdmin
}
