package response

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-auth-service/internal/core/errs"
	"go-gin-auth-service/internal/core/logger"
)

// Resp 统一信封：{status, token?, message?, results?, data?}
type Resp struct {
	Status  string `json:"status"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
	Results *int   `json:"results,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func OK(data any) Resp { return Resp{Status: StatusSuccess, Data: data} }

func WithToken(token string, data any) Resp {
	return Resp{Status: StatusSuccess, Token: token, Data: data}
}

func Message(msg string) Resp { return Resp{Status: StatusSuccess, Message: msg} }

// List 带 results 计数
func List(n int, data any) Resp { return Resp{Status: StatusSuccess, Results: &n, Data: data} }

func Error(err error) Resp { return Resp{Status: StatusError, Message: errs.Message(err)} }

// Fail 写错误响应并中止；5xx 记 Error，其余 Debug
func Fail(c *gin.Context, l *zap.Logger, err error) {
	status := StatusOf(err)
	if l != nil {
		fields := append(logger.ErrorFields(err), zap.String("path", c.FullPath()))
		if status >= 500 {
			l.Error("request failed", fields...)
		} else {
			l.Debug("request rejected", fields...)
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Error(err))
}
