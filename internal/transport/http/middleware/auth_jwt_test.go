package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-gin-auth-service/internal/core/auth"
	"go-gin-auth-service/internal/domain"
	"go-gin-auth-service/internal/repo"
)

type guardFixture struct {
	now    time.Time
	jwt    *auth.JWTer
	users  *repo.MemoryUserRepo
	engine *gin.Engine
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &guardFixture{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), users: repo.NewMemoryUserRepo()}
	jw, err := auth.NewJWTer([]byte("0123456789abcdef0123456789abcdef"), "test", time.Hour)
	require.NoError(t, err)
	jw.Now = func() time.Time { return f.now }
	f.jwt = jw

	g := NewGuard(jw, f.users, auth.DefaultPolicy(), "jwt", zap.NewNop())
	r := gin.New()
	r.GET("/me", g.Require(auth.OpMe), func(c *gin.Context) {
		u, ok := CurrentUser(c)
		require.True(t, ok)
		fromCtx, ok := UserFromContext(c.Request.Context())
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": u.ID, "ctx": fromCtx.ID, "key": c.GetString(KeyUserID), "role": c.GetString(KeyRole)})
	})
	r.GET("/users", g.Require(auth.OpListUsers), func(c *gin.Context) { c.Status(http.StatusOK) })
	f.engine = r
	return f
}

func (f *guardFixture) seed(t *testing.T, role domain.Role) (*domain.User, string) {
	t.Helper()
	u := &domain.User{Name: "n", Email: string(role) + "@example.com", PasswordHash: "h", Role: role}
	require.NoError(t, f.users.Create(context.Background(), u))
	tok, err := f.jwt.Issue(u.ID)
	require.NoError(t, err)
	return u, tok
}

func (f *guardFixture) do(path string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func bearer(tok string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body.Status)
	return body.Message
}

func TestGuard_Bearer(t *testing.T) {
	f := newGuardFixture(t)
	u, tok := f.seed(t, domain.RoleUser)

	w := f.do("/me", bearer(tok))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"`+u.ID+`","ctx":"`+u.ID+`","key":"`+u.ID+`","role":"user"}`, w.Body.String())
}

func TestGuard_Cookie(t *testing.T) {
	f := newGuardFixture(t)
	_, tok := f.seed(t, domain.RoleUser)

	w := f.do("/me", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: tok}) })
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGuard_HeaderTakesPrecedence(t *testing.T) {
	f := newGuardFixture(t)
	_, tok := f.seed(t, domain.RoleUser)

	w := f.do("/me", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
		r.AddCookie(&http.Cookie{Name: "jwt", Value: tok})
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGuard_Unauthenticated(t *testing.T) {
	f := newGuardFixture(t)
	u, tok := f.seed(t, domain.RoleUser)

	w := f.do("/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "you are not logged in, please log in to get access", message(t, w))

	w = f.do("/me", func(r *http.Request) { r.Header.Set("Authorization", "Basic Zm9vOmJhcg==") })
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	f.now = f.now.Add(2 * time.Hour)
	w = f.do("/me", bearer(tok))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token has expired, please log in again", message(t, w))
	f.now = f.now.Add(-2 * time.Hour)

	require.NoError(t, f.users.Delete(context.Background(), u.ID))
	w = f.do("/me", bearer(tok))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "the user belonging to this token no longer exists", message(t, w))
}

func TestGuard_StaleAfterPasswordChange(t *testing.T) {
	f := newGuardFixture(t)
	f.now = f.now.Add(100 * time.Millisecond)
	u, oldTok := f.seed(t, domain.RoleUser)

	// 同一秒内改密，旧令牌也必须失效
	f.now = f.now.Add(800 * time.Millisecond)
	require.NoError(t, f.users.UpdatePassword(context.Background(), u.ID, "h2", f.now))

	w := f.do("/me", bearer(oldTok))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "user recently changed password, please log in again", message(t, w))

	freshTok, err := f.jwt.Issue(u.ID)
	require.NoError(t, err)
	w = f.do("/me", bearer(freshTok))
	assert.Equal(t, http.StatusOK, w.Code, "token issued at the change instant is valid")
}

func TestGuard_RolePolicy(t *testing.T) {
	f := newGuardFixture(t)
	_, userTok := f.seed(t, domain.RoleUser)
	_, modTok := f.seed(t, domain.RoleModerator)
	_, adminTok := f.seed(t, domain.RoleAdmin)

	w := f.do("/users", bearer(userTok))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "you do not have permission to perform this action", message(t, w))

	assert.Equal(t, http.StatusOK, f.do("/users", bearer(modTok)).Code)
	assert.Equal(t, http.StatusOK, f.do("/users", bearer(adminTok)).Code)
}
