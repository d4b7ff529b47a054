package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-auth-service/internal/core/auth"
	"go-gin-auth-service/internal/service"
	mdw "go-gin-auth-service/internal/transport/http/middleware"
	resp "go-gin-auth-service/internal/transport/http/response"
	"go-gin-auth-service/internal/transport/http/router"
)

// UserHandler 用户管理；同时挂在 /api/v1 与 /admin/v1
type UserHandler struct {
	users *service.UserService
	guard *mdw.Guard
	log   *zap.Logger
}

func NewUserHandler(u *service.UserService, g *mdw.Guard, l *zap.Logger) *UserHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &UserHandler{users: u, guard: g, log: l.Named("http.users")}
}

type listUsersReq struct {
	Offset      int    `form:"offset"`
	Limit       int    `form:"limit"`
	Q           string `form:"q"`
	WithDeleted bool   `form:"with_deleted"`
}

func (h *UserHandler) MountAPI(g *gin.RouterGroup)   { h.mount(g, false) }
func (h *UserHandler) MountAdmin(g *gin.RouterGroup) { h.mount(g, true) }

// mount 软删记录只在管理端可见
func (h *UserHandler) mount(g *gin.RouterGroup, admin bool) {
	router.RegisterAction(g, h.log, router.Action[listUsersReq]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: router.BindQuery,
		Guard:  h.guard.Require(auth.OpListUsers),
		Handler: func(c *gin.Context, in *listUsersReq) (resp.Resp, error) {
			page, err := h.users.List(c.Request.Context(), service.ListQuery{
				Offset:      in.Offset,
				Limit:       in.Limit,
				Query:       in.Q,
				WithDeleted: admin && in.WithDeleted,
			})
			if err != nil {
				return resp.Resp{}, err
			}
			return resp.List(len(page.Users), gin.H{"users": page.Users, "total": page.Total}), nil
		},
	})

	router.RegisterAction(g, h.log, router.Action[struct{}]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: router.BindNone,
		Guard:  h.guard.Require(auth.OpDeleteUser),
		Handler: func(c *gin.Context, _ *struct{}) (resp.Resp, error) {
			id := c.Param("id")
			if err := h.users.Delete(c.Request.Context(), c.GetString(mdw.KeyUserID), id); err != nil {
				return resp.Resp{}, err
			}
			return resp.OK(gin.H{"id": id}), nil
		},
	})
}
