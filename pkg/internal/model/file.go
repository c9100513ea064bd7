package model

import "time"

// File 文件模型，记录指向对象存储中一个 blob 的元数据.
// BlobKey 创建后不可变，重命名/移动只改元数据，不触碰对象存储.
// 同级唯一性由 (owner_id, folder_id, name) 唯一索引兜底；
// folder_id 为 NULL 的根级行不受该索引约束，根级冲突仍依赖事务内检查.
type File struct {
	ID   string `gorm:"primaryKey;size:32" json:"id"`
	Name string `gorm:"size:512;not null;uniqueIndex:idx_file_sibling,priority:3" json:"name"`
	// FolderID 为空表示根级文件
	FolderID *string `gorm:"size:32;index;uniqueIndex:idx_file_sibling,priority:2"  json:"folder_id,omitempty"`
	OwnerID  string  `gorm:"size:255;index;uniqueIndex:idx_file_sibling,priority:1" json:"owner_id"`
	// BlobKey 对象存储键，全局唯一
	BlobKey  string `gorm:"size:512;uniqueIndex" json:"-"`
	BlobSize int64  `json:"blob_size"`
	MimeType string `gorm:"size:255" json:"mime_type"`
	// 公共链接状态：IsPublic 为真时 PublicToken 必非空，反之必为空
	IsPublic        bool       `gorm:"index"                json:"is_public"`
	PublicToken     *string    `gorm:"size:128;uniqueIndex" json:"-"`
	PublicExpiresAt *time.Time `json:"public_expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName 指定表名.
func (File) TableName() string {
	return "files"
}
