// Package model 定义数据库模型，数据库为元数据的唯一真源，
// 文件内容本身存放在对象存储中.
package model

// AllModels 返回需要迁移的全部模型.
func AllModels() []any {
	return []any{
		&User{},
		&Folder{},
		&File{},
		&Share{},
	}
}
