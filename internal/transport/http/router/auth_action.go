package router

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-auth-service/internal/core/errs"
	resp "go-gin-auth-service/internal/transport/http/response"
)

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none" // 不绑定，自己从 c.Param 取
)

// Action 一行注册一个接口：I 为入参
type Action[I any] struct {
	Method string
	Path   string
	Binder Binder
	// Guard 可选，一般是 guard.Require(op)
	Guard gin.HandlerFunc
	// Status 成功状态码，默认 200
	Status int
	// BindError 绑定失败时的对外错误，默认 "invalid request body"
	BindError func(error) error
	Handler   func(c *gin.Context, in *I) (resp.Resp, error)
}

func bind[I any](c *gin.Context, b Binder, in *I) error {
	switch b {
	case BindJSON:
		return c.ShouldBindJSON(in)
	case BindQuery:
		return c.ShouldBindQuery(in)
	}
	return nil
}

func RegisterAction[I any](g *gin.RouterGroup, l *zap.Logger, a Action[I]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, resp.Resp{Status: resp.StatusError, Message: "request body too large"})
				return
			}
			mapped := errs.Validation("invalid request body")
			if a.BindError != nil {
				mapped = a.BindError(err)
			}
			resp.Fail(c, l, mapped)
			return
		}
		out, err := a.Handler(c, &in)
		if err != nil {
			resp.Fail(c, l, err)
			return
		}
		c.JSON(status, out)
	}

	handlers := []gin.HandlerFunc{h}
	if a.Guard != nil {
		handlers = []gin.HandlerFunc{a.Guard, h}
	}
	g.Handle(strings.ToUpper(a.Method), a.Path, handlers...)
}
