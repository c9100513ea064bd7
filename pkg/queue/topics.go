// Package queue 定义消息主题常量与负载结构，供发布/订阅使用.
package queue

// 主题命名规范：ov.<域>.<动作>，尽量稳定且向后兼容.
// 域：object(文件对象)、folder(文件夹树)、share(共享授权)、link(公共链接)
// 动作：stored/deleted/renamed/moved、created、granted/revoked、issued 等

const (
	// 文件对象领域.
	TopicObjectStored  = "ov.object.stored"  // 元数据入库后触发，blob 已写入对象存储
	TopicObjectDeleted = "ov.object.deleted" // 文件元数据删除（blob 删除为尽力而为）
	TopicObjectRenamed = "ov.object.renamed" // 文件重命名，blob 不变
	TopicObjectMoved   = "ov.object.moved"   // 文件移动到其它文件夹，blob 不变

	// 文件夹领域.
	TopicFolderCreated = "ov.folder.created" // 新建文件夹
	TopicFolderRenamed = "ov.folder.renamed" // 重命名，含整棵子树路径重写
	TopicFolderDeleted = "ov.folder.deleted" // 级联删除，含被删文件与子文件夹计数

	// 共享授权领域.
	TopicShareGranted = "ov.share.granted" // 授权创建或权限更新
	TopicShareRevoked = "ov.share.revoked" // 授权撤销

	// 公共链接领域.
	TopicLinkIssued  = "ov.link.issued"  // 签发公共链接
	TopicLinkRevoked = "ov.link.revoked" // 撤销公共链接
)

// 主题分组，用于批量操作或权限控制.
var (
	// 文件对象相关主题集合.
	ObjectTopics = []string{
		TopicObjectStored, TopicObjectDeleted,
		TopicObjectRenamed, TopicObjectMoved,
	}

	// 文件夹相关主题集合.
	FolderTopics = []string{
		TopicFolderCreated, TopicFolderRenamed, TopicFolderDeleted,
	}

	// 共享相关主题集合.
	ShareTopics = []string{
		TopicShareGranted, TopicShareRevoked,
	}

	// 公共链接相关主题集合.
	LinkTopics = []string{
		TopicLinkIssued, TopicLinkRevoked,
	}
)
