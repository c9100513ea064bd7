package types

import "time"

// IssuePublicLinkRequest 签发公共链接请求，TTLHours 为空表示永不过期.
type IssuePublicLinkRequest struct {
	TTLHours *int `json:"ttl_hours,omitempty" rule:"omitempty,min=1"`
}

// PublicLinkInfo 签发结果，令牌只在此处返回一次.
// URL 是无需认证即可解析的信息地址.
type PublicLinkInfo struct {
	Token     string     `json:"token"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// PublicFileInfo 公共链接解析出的精简文件信息.
// 刻意不包含对象存储键与所有者邮箱等内部信息.
type PublicFileInfo struct {
	Name      string     `json:"name"`
	Size      int64      `json:"size"`
	MimeType  string     `json:"mime_type"`
	OwnerName string     `json:"owner_name"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
