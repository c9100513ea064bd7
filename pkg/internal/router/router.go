// Package router 管理路由配置，将路径绑定到 pkg/internal/handle 中的处理器.
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes 注册全部认证接口到 /api/v1 路由组.
func RegisterAPIRoutes(g *gin.RouterGroup) {
	RegisterFolderRoutes(g)
	RegisterFileRoutes(g)
	RegisterShareRoutes(g)
	RegisterHealthCheckRoute(g)
}
