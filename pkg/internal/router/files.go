package router

import (
	"github.com/gin-gonic/gin"

	"github.com/opshub/opsvault/pkg/internal/handle"
)

// RegisterFileRoutes 注册文件操作相关路由.
func RegisterFileRoutes(g *gin.RouterGroup) {
	fileRoutes := g.Group("/files")
	{
		// 某一级的文件列表，folder_id 为空表示根级
		fileRoutes.GET("", handle.ListFiles)
		// multipart 上传，超限返回 413
		fileRoutes.POST("/upload", handle.UploadFile)

		singleGroup := fileRoutes.Group("/:id")
		{
			singleGroup.PATCH("", handle.RenameFile)
			singleGroup.PATCH("/move", handle.MoveFile)
			singleGroup.DELETE("", handle.DeleteFile)
			// 限时签名下载地址
			singleGroup.GET("/download", handle.DownloadFile)

			// 公共链接的签发与撤销
			singleGroup.POST("/public", handle.IssuePublicLink)
			singleGroup.DELETE("/public", handle.RevokePublicLink)
		}
	}
}
