package router

import (
	"github.com/gin-gonic/gin"

	"github.com/opshub/opsvault/pkg/internal/handle"
)

// RegisterPublicRoutes 注册无需认证的公共链接路由.
// 挂在认证中间件之外，令牌本身就是凭证.
func RegisterPublicRoutes(g *gin.RouterGroup) {
	publicRoutes := g.Group("/public/:token")
	{
		publicRoutes.GET("/info", handle.PublicInfo)
		publicRoutes.GET("/download", handle.PublicDownload)
	}
}
