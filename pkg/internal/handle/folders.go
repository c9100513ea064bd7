package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opshub/opsvault/pkg/internal/service"
	"github.com/opshub/opsvault/pkg/internal/types"
	"github.com/opshub/opsvault/pkg/log"
	"github.com/opshub/opsvault/pkg/rule"
)

// optionalID 读取可选的 ID query 参数，空串视为未提供.
func optionalID(c *gin.Context, key string) *string {
	v := c.Query(key)
	if v == "" {
		return nil
	}

	return &v
}

// CreateFolder 创建文件夹.
func CreateFolder(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	var req types.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Logger().Warn().Err(err).Msg("invalid create folder request")
		badRequest(c, "invalid request parameters")

		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		badRequest(c, err.Error())

		return
	}

	svc := service.NewFolderService(c.Request.Context())

	resp, err := svc.Create(c.Request.Context(), user, &req)
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusCreated, resp)
}

// RenameFolder 重命名文件夹，子树路径级联更新.
func RenameFolder(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	var req types.RenameFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request parameters")

		return
	}

	svc := service.NewFolderService(c.Request.Context())

	resp, err := svc.Rename(c.Request.Context(), user, c.Param("id"), req.Name)
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, resp)
}

// DeleteFolder 级联删除文件夹及其全部内容.
func DeleteFolder(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	svc := service.NewFolderService(c.Request.Context())

	resp, err := svc.Delete(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, resp)
}

// GetFolder 返回文件夹详情、面包屑与直接子项.
func GetFolder(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	svc := service.NewFolderService(c.Request.Context())

	resp, err := svc.GetWithBreadcrumb(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, resp)
}

// ListFolders 列出某一级的子文件夹，parent_id 为空表示根级.
func ListFolders(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	svc := service.NewFolderService(c.Request.Context())

	resp, err := svc.List(c.Request.Context(), user, optionalID(c, "parent_id"))
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, resp)
}

// ListAllFolders 平铺列出用户的全部文件夹.
func ListAllFolders(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	svc := service.NewFolderService(c.Request.Context())

	resp, err := svc.ListAll(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, resp)
}
