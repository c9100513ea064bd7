// Package api 将路由、认证与缓存策略组装到 gin 引擎上.
package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opshub/opsvault/pkg/cache"
	"github.com/opshub/opsvault/pkg/configs"
	"github.com/opshub/opsvault/pkg/internal/handle"
	"github.com/opshub/opsvault/pkg/internal/router"
	"github.com/opshub/opsvault/pkg/internal/storage"
	"github.com/opshub/opsvault/pkg/middleware"
)

// RegisterRoutes 注册全部路由：认证接口挂在 /api/v1 下，
// 公共链接路由由 auth.skip_paths 豁免认证，KV 可用时叠加响应缓存.
func RegisterRoutes(e *gin.Engine, manager *storage.Manager) *gin.Engine {
	cfg := configs.GetConfig()

	e.GET("/healthz", handle.Healthz)

	apiGroup := e.Group("/api/v1")
	apiGroup.Use(middleware.AuthMiddleware(cfg.Auth))

	router.RegisterAPIRoutes(apiGroup)

	publicGroup := apiGroup.Group("")

	if kvc := manager.GetKVClient(); kvc != nil && cfg.Vault.PublicCacheDuration() > 0 {
		cacheCfg := middleware.DefaultCacheConfig(cache.NewCache(kvc))
		cacheCfg.TTL = cfg.Vault.PublicCacheDuration()
		// 下载地址是限时签名，不进响应缓存
		cacheCfg.Skipper = func(c *gin.Context) bool {
			return strings.HasSuffix(c.FullPath(), "/download")
		}

		publicGroup.Use(middleware.CacheMiddleware(cacheCfg))
	}

	router.RegisterPublicRoutes(publicGroup)

	return e
}
