package router

import (
	"github.com/gin-gonic/gin"

	"github.com/opshub/opsvault/pkg/internal/handle"
)

// RegisterShareRoutes 注册共享授权相关路由.
func RegisterShareRoutes(g *gin.RouterGroup) {
	// 单条授权操作
	shareRoutes := g.Group("/share")
	{
		shareRoutes.POST("", handle.GrantShare)
		shareRoutes.DELETE("/:id", handle.RevokeShare)
	}

	// 某个目标上的授权列表，仅所有者可见
	g.GET("/shares", handle.ListSharesForTarget)
	// 授权给当前用户的共享
	g.GET("/shared-with-me", handle.ListSharedWithMe)
	// 可见性查询
	g.GET("/shares/can-access", handle.CanAccess)
}
