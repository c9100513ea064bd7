package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opshub/opsvault/pkg/internal/service"
	"github.com/opshub/opsvault/pkg/internal/types"
	"github.com/opshub/opsvault/pkg/rule"
)

// IssuePublicLink 为文件签发公共链接，重复签发会换发新令牌.
func IssuePublicLink(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	// 空请求体等同于永不过期
	var req types.IssuePublicLinkRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request parameters")

			return
		}

		if err := rule.ValidateStruct(&req); err != nil {
			badRequest(c, err.Error())

			return
		}
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.IssuePublicLink(c.Request.Context(), user, c.Param("id"), &req)
	if err != nil {
		respondError(c, err)

		return
	}

	resp.URL = "/api/v1/public/" + resp.Token + "/info"

	respond(c, http.StatusCreated, resp)
}

// RevokePublicLink 撤销公共链接，对未公开的文件是无操作成功.
func RevokePublicLink(c *gin.Context) {
	user, err := checkUser(c)
	if err != nil {
		badRequest(c, "missing or invalid user")

		return
	}

	svc := service.NewFileService(c.Request.Context())

	if err := svc.RevokePublicLink(c.Request.Context(), user, c.Param("id")); err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, gin.H{"revoked": true})
}

// PublicInfo 无需认证，按令牌返回精简文件信息.
// 过期返回 410，撤销或不存在返回 404.
func PublicInfo(c *gin.Context) {
	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.ResolvePublic(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, resp)
}

// PublicDownload 无需认证，按令牌解析签名下载地址.
func PublicDownload(c *gin.Context) {
	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.ResolvePublicDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)

		return
	}

	respond(c, http.StatusOK, resp)
}
