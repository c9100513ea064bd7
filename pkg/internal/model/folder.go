package model

import "time"

// Folder 文件夹模型，树形结构以物化路径（Path）冗余存储.
// Path 始终等于从根到本节点的名称链，如 /Ops/Reports/2025，
// 重命名时在同一事务内重写整棵子树的 Path.
// 同级唯一性由 (owner_id, parent_id, name) 唯一索引兜底；
// parent_id 为 NULL 的根级行不受该索引约束（SQL 视 NULL 互不相等），
// 根级冲突仍依赖事务内的同名检查.
type Folder struct {
	ID   string `gorm:"primaryKey;size:32" json:"id"`
	Name string `gorm:"size:255;not null;uniqueIndex:idx_folder_sibling,priority:3" json:"name"`
	// ParentID 为空表示根级文件夹
	ParentID *string `gorm:"size:32;index;uniqueIndex:idx_folder_sibling,priority:2" json:"parent_id,omitempty"`
	OwnerID  string  `gorm:"size:255;index;uniqueIndex:idx_folder_sibling,priority:1" json:"owner_id"`
	// Path 物化路径，同 owner 下唯一；前缀匹配用于收集子树
	Path      string    `gorm:"size:4096;index" json:"path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名.
func (Folder) TableName() string {
	return "folders"
}
