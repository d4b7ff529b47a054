package response

import (
	"net/http"

	"go-gin-auth-service/internal/core/errs"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// kindStatus 错误分类 → HTTP 状态码（唯一映射点）
var kindStatus = map[errs.Kind]int{
	errs.KindValidation:   http.StatusBadRequest,
	errs.KindConflict:     http.StatusConflict,
	errs.KindUnauthorized: http.StatusUnauthorized,
	errs.KindForbidden:    http.StatusForbidden,
	errs.KindNotFound:     http.StatusNotFound,
	errs.KindInvalidToken: http.StatusBadRequest,
	errs.KindDelivery:     http.StatusInternalServerError,
	errs.KindInternal:     http.StatusInternalServerError,
}

func StatusOf(err error) int {
	if s, ok := kindStatus[errs.KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}
