package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultMaxUploadSizeMB   = 100  // 单文件上传大小上限（MB）
	DefaultPresignTTLMinutes = 15   // 下载签名URL有效期（分钟）
	DefaultPublicCacheTTL    = 60   // 公共链接缓存有效期（秒）
	DefaultPublicTokenBytes  = 32   // 公共链接令牌随机字节数
	DefaultMaxPublicTTLHours = 8760 // 公共链接最长有效期（小时，一年）
)

// VaultConfig 文件库策略配置，约束上传大小、下载签名与公共链接行为.
type VaultConfig struct {
	MaxUploadSizeMB   int64 `mapstructure:"max_upload_size_mb"   rule:"min=1"`
	PresignTTLMinutes int   `mapstructure:"presign_ttl_minutes"  rule:"min=1,max=1440"`
	PublicCacheTTL    int   `mapstructure:"public_cache_ttl"     rule:"min=0"`
	PublicTokenBytes  int   `mapstructure:"public_token_bytes"   rule:"min=16,max=64"`
	MaxPublicTTLHours int   `mapstructure:"max_public_ttl_hours" rule:"min=1"`
}

// MaxUploadBytes 返回上传大小上限（字节）.
func (c *VaultConfig) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB * 1024 * 1024
}

// PresignTTL 返回下载签名有效期.
func (c *VaultConfig) PresignTTL() time.Duration {
	return time.Duration(c.PresignTTLMinutes) * time.Minute
}

// PublicCacheDuration 返回公共链接缓存有效期.
func (c *VaultConfig) PublicCacheDuration() time.Duration {
	return time.Duration(c.PublicCacheTTL) * time.Second
}

// setDefaults 设置文件库策略的默认值.
func (c *VaultConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("vault.max_upload_size_mb", DefaultMaxUploadSizeMB)
	v.SetDefault("vault.presign_ttl_minutes", DefaultPresignTTLMinutes)
	v.SetDefault("vault.public_cache_ttl", DefaultPublicCacheTTL)
	v.SetDefault("vault.public_token_bytes", DefaultPublicTokenBytes)
	v.SetDefault("vault.max_public_ttl_hours", DefaultMaxPublicTTLHours)
}
