package model

import "time"

// Permission 共享权限级别.
type Permission string

const (
	PermissionView Permission = "view"
	PermissionEdit Permission = "edit"
)

// Valid 校验权限取值.
func (p Permission) Valid() bool {
	return p == PermissionView || p == PermissionEdit
}

// Share 共享授权模型，把单个文件或文件夹授权给另一位用户.
// FileID 与 FolderID 恰好一个非空；同一 (目标, 被授权人) 只保留一行，
// 重复授权更新权限而不是新增行. 文件夹共享不会向下传递到其中的文件.
type Share struct {
	ID       string  `gorm:"primaryKey;size:32" json:"id"`
	FileID   *string `gorm:"size:32;index;uniqueIndex:idx_share_file_grantee"   json:"file_id,omitempty"`
	FolderID *string `gorm:"size:32;index;uniqueIndex:idx_share_folder_grantee" json:"folder_id,omitempty"`
	// SharedWith 被授权人邮箱
	SharedWith string `gorm:"size:255;index;uniqueIndex:idx_share_file_grantee;uniqueIndex:idx_share_folder_grantee" json:"shared_with"`
	// SharedBy 授权人邮箱，只有授权人可以撤销
	SharedBy   string     `gorm:"size:255;index" json:"shared_by"`
	Permission Permission `gorm:"size:16"        json:"permission"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName 指定表名.
func (Share) TableName() string {
	return "shares"
}

// TargetID 返回共享目标的ID.
func (s *Share) TargetID() string {
	if s.FileID != nil {
		return *s.FileID
	}

	if s.FolderID != nil {
		return *s.FolderID
	}

	return ""
}

// IsFileShare 判断是否为文件共享.
func (s *Share) IsFileShare() bool {
	return s.FileID != nil
}
