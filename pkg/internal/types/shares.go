package types

import "time"

// GrantShareRequest 授权共享请求，FileID 与 FolderID 必须恰好填一个.
type GrantShareRequest struct {
	FileID     *string `json:"file_id,omitempty"`
	FolderID   *string `json:"folder_id,omitempty"`
	SharedWith string  `json:"shared_with" rule:"required,email"`
	Permission string  `json:"permission"  rule:"required,oneof=view edit"`
}

// ShareInfo 共享授权信息.
type ShareInfo struct {
	ID         string    `json:"id"`
	FileID     *string   `json:"file_id,omitempty"`
	FolderID   *string   `json:"folder_id,omitempty"`
	TargetName string    `json:"target_name"`
	SharedWith string    `json:"shared_with"`
	SharedBy   string    `json:"shared_by"`
	Permission string    `json:"permission"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListSharesResponse 共享列表响应.
type ListSharesResponse struct {
	Shares []ShareInfo `json:"shares"`
	Total  int         `json:"total"`
}
