package router

import "github.com/gin-gonic/gin"

// NewAdminEngine 管理端：/admin/v1，鉴权由各模块按策略表挂载
func NewAdminEngine(o EngineOptions, reg *Registry) *gin.Engine {
	r := newEngine(o)
	reg.MountAdmin(r.Group("/admin/v1"))
	return r
}
