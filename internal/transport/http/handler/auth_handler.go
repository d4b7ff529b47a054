package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-auth-service/internal/core/auth"
	"go-gin-auth-service/internal/core/errs"
	"go-gin-auth-service/internal/service"
	mdw "go-gin-auth-service/internal/transport/http/middleware"
	resp "go-gin-auth-service/internal/transport/http/response"
	"go-gin-auth-service/internal/transport/http/router"
)

type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

type AuthHandler struct {
	auth   *service.AuthService
	users  *service.UserService
	guard  *mdw.Guard
	cookie CookieConfig
	log    *zap.Logger
}

func NewAuthHandler(a *service.AuthService, u *service.UserService, g *mdw.Guard, ck CookieConfig, l *zap.Logger) *AuthHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuthHandler{auth: a, users: u, guard: g, cookie: ck, log: l.Named("http.auth")}
}

func (h *AuthHandler) Priority() int { return 10 }

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type forgotReq struct {
	Email string `json:"email" binding:"required"`
}

type resetReq struct {
	Password string `json:"password"`
}

type updatePasswordReq struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

func bindMsg(msg string) func(error) error {
	return func(error) error { return errs.Validation(msg) }
}

// setTokenCookie HttpOnly + SameSite=Lax，有效期与令牌一致
func (h *AuthHandler) setTokenCookie(c *gin.Context, token string) {
	if h.cookie.Name == "" {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.TTL.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) tokenResp(c *gin.Context, res *service.AuthResult) resp.Resp {
	h.setTokenCookie(c, res.Token)
	return resp.WithToken(res.Token, gin.H{"user": res.User})
}

func (h *AuthHandler) MountAPI(g *gin.RouterGroup) {
	router.RegisterAction(g, h.log, router.Action[registerReq]{
		Method:    http.MethodPost,
		Path:      "/register",
		Binder:    router.BindJSON,
		Status:    http.StatusCreated,
		BindError: bindMsg("invalid request body"),
		Handler: func(c *gin.Context, in *registerReq) (resp.Resp, error) {
			res, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
				Name: in.Name, Email: in.Email, Password: in.Password,
			})
			if err != nil {
				return resp.Resp{}, err
			}
			return h.tokenResp(c, res), nil
		},
	})

	router.RegisterAction(g, h.log, router.Action[loginReq]{
		Method:    http.MethodPost,
		Path:      "/login",
		Binder:    router.BindJSON,
		BindError: bindMsg("please provide email and password"),
		Handler: func(c *gin.Context, in *loginReq) (resp.Resp, error) {
			res, err := h.auth.Login(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return resp.Resp{}, err
			}
			return h.tokenResp(c, res), nil
		},
	})

	router.RegisterAction(g, h.log, router.Action[forgotReq]{
		Method:    http.MethodPost,
		Path:      "/forgot-password",
		Binder:    router.BindJSON,
		BindError: bindMsg("please provide your email"),
		Handler: func(c *gin.Context, in *forgotReq) (resp.Resp, error) {
			if err := h.auth.ForgotPassword(c.Request.Context(), in.Email); err != nil {
				return resp.Resp{}, err
			}
			return resp.Message("token sent to email"), nil
		},
	})

	router.RegisterAction(g, h.log, router.Action[resetReq]{
		Method:    http.MethodPatch,
		Path:      "/reset-password/:token",
		Binder:    router.BindJSON,
		BindError: bindMsg("please provide a new password"),
		Handler: func(c *gin.Context, in *resetReq) (resp.Resp, error) {
			res, err := h.auth.ResetPassword(c.Request.Context(), c.Param("token"), in.Password)
			if err != nil {
				return resp.Resp{}, err
			}
			return h.tokenResp(c, res), nil
		},
	})

	router.RegisterAction(g, h.log, router.Action[updatePasswordReq]{
		Method:    http.MethodPatch,
		Path:      "/update-password",
		Binder:    router.BindJSON,
		Guard:     h.guard.Require(auth.OpChangePassword),
		BindError: bindMsg("please provide your current and new password"),
		Handler: func(c *gin.Context, in *updatePasswordReq) (resp.Resp, error) {
			res, err := h.auth.ChangePassword(c.Request.Context(), c.GetString(mdw.KeyUserID), in.CurrentPassword, in.Password)
			if err != nil {
				return resp.Resp{}, err
			}
			return h.tokenResp(c, res), nil
		},
	})

	router.RegisterAction(g, h.log, router.Action[struct{}]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: router.BindNone,
		Guard:  h.guard.Require(auth.OpMe),
		Handler: func(c *gin.Context, _ *struct{}) (resp.Resp, error) {
			me, err := h.users.Profile(c.Request.Context(), c.GetString(mdw.KeyUserID))
			if err != nil {
				return resp.Resp{}, err
			}
			return resp.OK(gin.H{"user": me}), nil
		},
	})

	router.RegisterAction(g, h.log, router.Action[struct{}]{
		Method: http.MethodDelete,
		Path:   "/reset-password",
		Binder: router.BindNone,
		Guard:  h.guard.Require(auth.OpCancelReset),
		Handler: func(c *gin.Context, _ *struct{}) (resp.Resp, error) {
			if err := h.auth.CancelPasswordReset(c.Request.Context(), c.GetString(mdw.KeyUserID)); err != nil {
				return resp.Resp{}, err
			}
			return resp.Message("password reset cancelled"), nil
		},
	})
}
