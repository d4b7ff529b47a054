// Package errs 定义统一错误分类（带 code 的 oops 错误），由 HTTP 层统一映射状态码。
package errs

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindConflict     Kind = "CONFLICT"
	KindUnauthorized Kind = "UNAUTHENTICATED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindInvalidToken Kind = "INVALID_OR_EXPIRED_TOKEN"
	KindDelivery     Kind = "DELIVERY_FAILED"
	KindInternal     Kind = "INTERNAL"
)

func New(kind Kind, msg string) error {
	return oops.Code(string(kind)).New(msg)
}

// Wrap 给底层错误打上分类；msg 作为对外提示，底层错误保留在链上供日志使用
func Wrap(kind Kind, err error, msg string) error {
	return oops.Code(string(kind)).With("reason", msg).Wrapf(err, "%s", msg)
}

// KindOf 无 code 的错误一律视为 INTERNAL
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if o, ok := oops.AsOops(err); ok {
		if c := fmt.Sprint(o.Code()); c != "" && c != "<nil>" {
			return Kind(c)
		}
	}
	return KindInternal
}

func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

// Message 取对外可见的提示：INTERNAL 不暴露细节
func Message(err error) string {
	if err == nil {
		return ""
	}
	if KindOf(err) == KindInternal {
		return "internal error"
	}
	if o, ok := oops.AsOops(err); ok {
		if reason, ok := o.Context()["reason"].(string); ok && reason != "" {
			return reason
		}
		return o.Error()
	}
	return err.Error()
}

// 常用构造
func Validation(msg string) error   { return New(KindValidation, msg) }
func Conflict(msg string) error     { return New(KindConflict, msg) }
func Unauthorized(msg string) error { return New(KindUnauthorized, msg) }
func Forbidden(msg string) error    { return New(KindForbidden, msg) }
func NotFound(msg string) error     { return New(KindNotFound, msg) }
func Internal(msg string, err error) error {
	if err == nil {
		err = errors.New(msg)
	}
	return Wrap(KindInternal, err, msg)
}
