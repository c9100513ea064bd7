package router

import (
	"github.com/gin-gonic/gin"

	"github.com/opshub/opsvault/pkg/internal/handle"
)

// RegisterFolderRoutes 注册文件夹树相关路由.
func RegisterFolderRoutes(g *gin.RouterGroup) {
	folderRoutes := g.Group("/folders")
	{
		// 某一级的子文件夹，parent_id 为空表示根级
		folderRoutes.GET("", handle.ListFolders)
		// 平铺列出全部文件夹，供移动/浏览界面使用
		folderRoutes.GET("/all", handle.ListAllFolders)
		folderRoutes.POST("", handle.CreateFolder)

		singleGroup := folderRoutes.Group("/:id")
		{
			// 详情 + 面包屑 + 直接子项
			singleGroup.GET("", handle.GetFolder)
			// 重命名，子树路径级联更新
			singleGroup.PATCH("", handle.RenameFolder)
			// 级联删除
			singleGroup.DELETE("", handle.DeleteFolder)
		}
	}
}
