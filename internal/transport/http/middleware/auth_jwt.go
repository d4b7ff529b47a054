package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-auth-service/internal/core/auth"
	"go-gin-auth-service/internal/core/errs"
	"go-gin-auth-service/internal/domain"
	resp "go-gin-auth-service/internal/transport/http/response"
)

const (
	KeyUserID = "userId"
	KeyRole   = "role"
	keyUser   = "user"
)

type TokenVerifier interface {
	Verify(token string) (*auth.TokenInfo, error)
}

// Guard 认证 + 授权：验签 → 查活跃用户 → 过期判定 → 策略表校验角色
type Guard struct {
	tokens TokenVerifier
	users  domain.UserRepository
	policy auth.Policy
	cookie string
	log    *zap.Logger
}

func NewGuard(tokens TokenVerifier, users domain.UserRepository, policy auth.Policy, cookieName string, l *zap.Logger) *Guard {
	if policy == nil {
		policy = auth.DefaultPolicy()
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &Guard{tokens: tokens, users: users, policy: policy, cookie: cookieName, log: l.Named("guard")}
}

// tokenFrom Authorization: Bearer 优先，其次 cookie
func (g *Guard) tokenFrom(r *http.Request) string {
	if ah := r.Header.Get("Authorization"); len(ah) > 7 && strings.EqualFold(ah[:7], "Bearer ") {
		return strings.TrimSpace(ah[7:])
	}
	if g.cookie == "" {
		return ""
	}
	if ck, err := r.Cookie(g.cookie); err == nil {
		return ck.Value
	}
	return ""
}

func (g *Guard) Authenticate(r *http.Request) (*domain.User, error) {
	tok := g.tokenFrom(r)
	if tok == "" {
		return nil, errs.Unauthorized("you are not logged in, please log in to get access")
	}
	info, err := g.tokens.Verify(tok)
	if err != nil {
		return nil, err
	}
	u, err := g.users.FindByID(r.Context(), info.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errs.Unauthorized("the user belonging to this token no longer exists")
	}
	if err != nil {
		return nil, errs.Internal("load user failed", err)
	}
	if u.PasswordChangedAfter(info.IssuedAt) {
		return nil, errs.Unauthorized("user recently changed password, please log in again")
	}
	return u, nil
}

func (g *Guard) Authorize(u *domain.User, op auth.Operation) error {
	if !g.policy.Allows(op, u.Role) {
		return errs.Forbidden("you do not have permission to perform this action")
	}
	return nil
}

// Require 挂在路由上：失败直接按错误分类返回 401/403
func (g *Guard) Require(op auth.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := g.Authenticate(c.Request)
		if err == nil {
			err = g.Authorize(u, op)
		}
		if err != nil {
			resp.Fail(c, g.log, err)
			return
		}
		c.Set(KeyUserID, u.ID)
		c.Set(KeyRole, string(u.Role))
		c.Set(keyUser, u)
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), u))
		c.Next()
	}
}

type userCtxKey struct{}

func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*domain.User)
	return u, ok && u != nil
}

// CurrentUser 取 Require 写入的身份
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(keyUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok && u != nil
}
