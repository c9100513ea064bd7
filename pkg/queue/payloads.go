package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 文件对象领域 --------------------------

// ObjectRef 标识一个文件对象及其所在位置.
type ObjectRef struct {
	FileID   string `json:"file_id"`
	Name     string `json:"name"`
	FolderID string `json:"folder_id,omitempty"`
	OwnerID  string `json:"owner_id"`
	BlobKey  string `json:"blob_key,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// ObjectStoredPayload 文件上传完成（blob 与元数据均已落盘）.
type ObjectStoredPayload struct {
	Object ObjectRef `json:"object"`
}

// ObjectDeletedPayload 文件被删除.
type ObjectDeletedPayload struct {
	Object      ObjectRef `json:"object"`
	BlobDeleted bool      `json:"blob_deleted"` // blob 删除是否成功（失败只记录，不阻塞）
}

// ObjectRenamedPayload 文件重命名.
type ObjectRenamedPayload struct {
	Object  ObjectRef `json:"object"`
	OldName string    `json:"old_name"`
}

// ObjectMovedPayload 文件移动.
type ObjectMovedPayload struct {
	Object      ObjectRef `json:"object"`
	OldFolderID string    `json:"old_folder_id,omitempty"`
}

// -------------------------- 文件夹领域 --------------------------

// FolderRef 标识一个文件夹节点.
type FolderRef struct {
	FolderID string `json:"folder_id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
	OwnerID  string `json:"owner_id"`
	Path     string `json:"path"`
}

// FolderCreatedPayload 新建文件夹.
type FolderCreatedPayload struct {
	Folder FolderRef `json:"folder"`
}

// FolderRenamedPayload 文件夹重命名，含受影响子树规模.
type FolderRenamedPayload struct {
	Folder   FolderRef `json:"folder"`
	OldPath  string    `json:"old_path"`
	Affected int64     `json:"affected"` // 被重写路径的后代文件夹数
}

// FolderDeletedPayload 文件夹级联删除.
type FolderDeletedPayload struct {
	Folder         FolderRef `json:"folder"`
	FoldersDeleted int64     `json:"folders_deleted"`
	FilesDeleted   int64     `json:"files_deleted"`
	BlobFailures   int64     `json:"blob_failures"` // 尽力而为删除中失败的 blob 数
}

// -------------------------- 共享授权领域 --------------------------

// SharePayload 共享授权变化.
type SharePayload struct {
	ShareID    string `json:"share_id"`
	FileID     string `json:"file_id,omitempty"`
	FolderID   string `json:"folder_id,omitempty"`
	SharedWith string `json:"shared_with"`
	SharedBy   string `json:"shared_by"`
	Permission string `json:"permission,omitempty"`
}

// -------------------------- 公共链接领域 --------------------------

// LinkPayload 公共链接签发/撤销.
// 注意负载不携带令牌本身，避免消息链路泄露可下载凭据.
type LinkPayload struct {
	FileID    string     `json:"file_id"`
	OwnerID   string     `json:"owner_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
