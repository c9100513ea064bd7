package types

import "time"

// FileInfo 文件元数据信息，不暴露对象存储键.
type FileInfo struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	FolderID        *string    `json:"folder_id,omitempty"`
	OwnerID         string     `json:"owner_id"`
	Size            int64      `json:"size"`
	MimeType        string     `json:"mime_type"`
	IsPublic        bool       `json:"is_public"`
	PublicExpiresAt *time.Time `json:"public_expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UploadFileRequest 上传文件的表单参数（文件内容经 multipart 提交）.
type UploadFileRequest struct {
	FolderID *string `form:"folder_id" json:"folder_id"`
}

// RenameFileRequest 重命名文件请求.
type RenameFileRequest struct {
	Name string `json:"name" rule:"required,max=512"`
}

// MoveFileRequest 移动文件请求，FolderID 为空表示移动到根级.
type MoveFileRequest struct {
	FolderID *string `json:"folder_id"`
}

// ListFilesResponse 文件列表响应.
type ListFilesResponse struct {
	Files []FileInfo `json:"files"`
	Total int        `json:"total"`
}

// DownloadTargetResponse 下载目标，URL 为限时签名地址.
type DownloadTargetResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"` // 秒
}
