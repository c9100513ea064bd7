package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opshub/opsvault/pkg/internal/service"
	"github.com/opshub/opsvault/pkg/internal/types"
	"github.com/opshub/opsvault/pkg/rule"
)

// GrantShare 把文件或文件夹授权给另一位注册用户.
func GrantShare(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	var req types.GrantShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request parameters")

		return
	}

	if err := rule.ValidateStruct(&req); err != nil {
		badRequest(c, err.Error())

		return
	}

	svc := service.NewShareService(c.Request.Context())

	resp, err := svc.Grant(c.Request.Context(), user, &req)
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusCreated, resp)
}

// RevokeShare 撤销共享，只有当初的授权人可以撤销.
func RevokeShare(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	svc := service.NewShareService(c.Request.Context())

	if err := svc.Revoke(c.Request.Context(), user, c.Param("id")); err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, gin.H{"revoked": true})
}

// ListSharedWithMe 列出授权给当前用户的全部共享.
func ListSharedWithMe(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	svc := service.NewShareService(c.Request.Context())

	resp, err := svc.ListSharedWithMe(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, resp)
}

// ListSharesForTarget 列出某个文件或文件夹上的全部授权，仅所有者可见.
// file_id 与 folder_id 必须恰好提供一个.
func ListSharesForTarget(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	svc := service.NewShareService(c.Request.Context())

	resp, err := svc.ListSharesForTarget(c.Request.Context(), user,
		optionalID(c, "file_id"), optionalID(c, "folder_id"))
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, resp)
}

// CanAccess 查询当前用户能否看到目标文件或文件夹.
func CanAccess(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	svc := service.NewShareService(c.Request.Context())

	allowed, err := svc.CanAccess(c.Request.Context(), user,
		optionalID(c, "file_id"), optionalID(c, "folder_id"))
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, gin.H{"allowed": allowed})
}
