// Package middleware 提供中间件
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opshub/opsvault/pkg/configs"
	"github.com/opshub/opsvault/pkg/internal/service"
	"github.com/opshub/opsvault/pkg/log"
)

// PrincipalKey 认证后的用户邮箱在 gin 上下文中的键.
const PrincipalKey = "principal"

// AuthMiddleware 基于 oauth2-proxy 注入的请求头做统一身份认证校验。
//   - 优先要求存在 X-Auth-Request-Email 或 X-Forwarded-Email
//   - 首次出现的用户自动落库（展示名取自 X-Auth-Request-Preferred-Username）
//   - 支持通过配置跳过某些路径（如 /metrics, /health）
//   - 开发模式可允许 query user 兜底（由 configs.auth.dev_allow_query 控制）.
//
// 依赖 StorageMiddleware 先行注入存储管理器.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !conf.Enabled || isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		email := strings.TrimSpace(c.GetHeader("X-Auth-Request-Email"))
		if email == "" {
			email = strings.TrimSpace(c.GetHeader("X-Forwarded-Email"))
		}

		if email == "" {
			if conf.DevAllowQuery && c.Query("user") != "" {
				c.Next()
				return
			}

			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"success": false, "message": "unauthorized"})

			return
		}

		c.Set(PrincipalKey, email)
		provisionUser(c, email)
		c.Next()
	}
}

// provisionUser 确保认证用户存在于用户表，失败只记日志不拦截请求.
func provisionUser(c *gin.Context, email string) {
	displayName := strings.TrimSpace(c.GetHeader("X-Auth-Request-Preferred-Username"))

	svc := service.NewUserService(c.Request.Context())
	if err := svc.EnsureUser(c.Request.Context(), email, displayName); err != nil {
		log.Logger().Warn().Err(err).Str("email", email).Msg("user provisioning failed")
	}
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
