package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// PublishObjectStored 发布 ov.object.stored 事件.
// 在 blob 写入对象存储且元数据入库后调用，通知下游流程（如索引、病毒扫描等）.
func PublishObjectStored(pub message.Publisher, payload ObjectStoredPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicObjectStored, payload, opts...)
}

// PublishObjectDeleted 发布 ov.object.deleted 事件.
func PublishObjectDeleted(pub message.Publisher, payload ObjectDeletedPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicObjectDeleted, payload, opts...)
}

// PublishObjectRenamed 发布 ov.object.renamed 事件.
func PublishObjectRenamed(pub message.Publisher, payload ObjectRenamedPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicObjectRenamed, payload, opts...)
}

// PublishObjectMoved 发布 ov.object.moved 事件.
func PublishObjectMoved(pub message.Publisher, payload ObjectMovedPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicObjectMoved, payload, opts...)
}

// PublishFolderCreated 发布 ov.folder.created 事件.
func PublishFolderCreated(pub message.Publisher, payload FolderCreatedPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicFolderCreated, payload, opts...)
}

// PublishFolderRenamed 发布 ov.folder.renamed 事件.
func PublishFolderRenamed(pub message.Publisher, payload FolderRenamedPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicFolderRenamed, payload, opts...)
}

// PublishFolderDeleted 发布 ov.folder.deleted 事件.
func PublishFolderDeleted(pub message.Publisher, payload FolderDeletedPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicFolderDeleted, payload, opts...)
}

// PublishShareGranted 发布 ov.share.granted 事件.
func PublishShareGranted(pub message.Publisher, payload SharePayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicShareGranted, payload, opts...)
}

// PublishShareRevoked 发布 ov.share.revoked 事件.
func PublishShareRevoked(pub message.Publisher, payload SharePayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicShareRevoked, payload, opts...)
}

// PublishLinkIssued 发布 ov.link.issued 事件.
func PublishLinkIssued(pub message.Publisher, payload LinkPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicLinkIssued, payload, opts...)
}

// PublishLinkRevoked 发布 ov.link.revoked 事件.
func PublishLinkRevoked(pub message.Publisher, payload LinkPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicLinkRevoked, payload, opts...)
}

// ParseObjectStored 将 Watermill 消息解析为强类型信封.
func ParseObjectStored(msg *message.Message) (Message[ObjectStoredPayload], error) {
	return ParseWatermillMessage[ObjectStoredPayload](msg)
}

// ParseFolderDeleted 将 Watermill 消息解析为强类型信封.
func ParseFolderDeleted(msg *message.Message) (Message[FolderDeletedPayload], error) {
	return ParseWatermillMessage[FolderDeletedPayload](msg)
}

func publish[T any](pub message.Publisher, topic string, payload T, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}
