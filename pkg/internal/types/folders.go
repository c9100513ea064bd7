// Package types 定义 API 请求与响应结构体.
package types

import "time"

// CreateFolderRequest 创建文件夹请求.
type CreateFolderRequest struct {
	Name     string  `json:"name"      rule:"required,max=255"`
	ParentID *string `json:"parent_id"`
}

// RenameFolderRequest 重命名文件夹请求.
type RenameFolderRequest struct {
	Name string `json:"name" rule:"required,max=255"`
}

// FolderInfo 文件夹信息.
type FolderInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id,omitempty"`
	OwnerID   string    `json:"owner_id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BreadcrumbItem 面包屑导航项，从根到当前文件夹.
type BreadcrumbItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// FolderContentResponse 文件夹详情，含面包屑与直接子项.
type FolderContentResponse struct {
	Folder     FolderInfo       `json:"folder"`
	Breadcrumb []BreadcrumbItem `json:"breadcrumb"`
	Subfolders []FolderInfo     `json:"subfolders"`
	Files      []FileInfo       `json:"files"`
}

// ListFoldersResponse 文件夹列表响应.
type ListFoldersResponse struct {
	Folders []FolderInfo `json:"folders"`
	Total   int          `json:"total"`
}

// DeleteFolderResponse 级联删除结果.
type DeleteFolderResponse struct {
	FoldersDeleted int64 `json:"folders_deleted"`
	FilesDeleted   int64 `json:"files_deleted"`
}
