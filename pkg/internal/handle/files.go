package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opshub/opsvault/pkg/configs"
	"github.com/opshub/opsvault/pkg/internal/service"
	"github.com/opshub/opsvault/pkg/internal/types"
	"github.com/opshub/opsvault/pkg/log"
)

// UploadFile 上传文件（multipart 表单，字段 file 与可选 folder_id）.
// 超出大小上限返回 413.
func UploadFile(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	var req types.UploadFileRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request parameters")

		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		log.Logger().Warn().Err(err).Msg("upload without file part")
		badRequest(c, "missing file")

		return
	}

	// 表单解析前先用声明大小拦截，避免读入超限内容
	if fh.Size > configs.GetConfig().Vault.MaxUploadBytes() {
		c.JSON(http.StatusRequestEntityTooLarge,
			gin.H{"success": false, "message": "file exceeds upload size limit"})

		return
	}

	src, err := fh.Open()
	if err != nil {
		respondError(c, err)

		return
	}
	defer src.Close()

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.Upload(c.Request.Context(), user, &service.UploadInput{
		Name:        fh.Filename,
		FolderID:    req.FolderID,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Reader:      src,
	})
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusCreated, resp)
}

// RenameFile 重命名文件.
func RenameFile(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	var req types.RenameFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request parameters")

		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.Rename(c.Request.Context(), user, c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, resp)
}

// MoveFile 移动文件到另一个文件夹，folder_id 为空表示根级.
func MoveFile(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	var req types.MoveFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request parameters")

		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.Move(c.Request.Context(), user, c.Param("id"), req.FolderID)
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, resp)
}

// DeleteFile 删除文件及其共享授权.
func DeleteFile(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	svc := service.NewFileService(c.Request.Context())

	if err := svc.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, gin.H{"deleted": true})
}

// ListFiles 列出某一级的文件，folder_id 为空表示根级.
func ListFiles(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.List(c.Request.Context(), user, optionalID(c, "folder_id"))
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, resp)
}

// DownloadFile 解析限时签名下载地址. 仅所有者或持有该文件直接共享的用户可用.
func DownloadFile(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.GetDownloadTarget(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, resp)
}
