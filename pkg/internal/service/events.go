package service

import (
	"context"

	"github.com/opshub/opsvault/pkg/configs"
	"github.com/opshub/opsvault/pkg/internal/model"
	"github.com/opshub/opsvault/pkg/internal/storage/mq"
	nlog "github.com/opshub/opsvault/pkg/log"
	"github.com/opshub/opsvault/pkg/queue"
)

const eventProducer = "opsvault"

// eventPublisher 封装事件发布，MQ 未配置或发布失败时只记录日志，不影响主流程.
type eventPublisher struct {
	mqc *mq.Client
}

func (p eventPublisher) publish(ctx context.Context, enabled bool, topic string, build func() (any, error)) {
	if !enabled || p.mqc == nil || !configs.GetConfig().Events.Enabled {
		return
	}

	payload, err := build()
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("topic", topic).Msg("build event failed")

		return
	}

	msg, err := queue.NewWatermillMessage(topic, payload, queue.WithProducer(eventProducer))
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("topic", topic).Msg("encode event failed")

		return
	}

	if err := p.mqc.Publish(ctx, topic, msg); err != nil {
		nlog.Logger().Warn().Err(err).Str("topic", topic).Msg("publish event failed")
	}
}

func objectRef(f *model.File) queue.ObjectRef {
	ref := queue.ObjectRef{
		FileID:   f.ID,
		Name:     f.Name,
		OwnerID:  f.OwnerID,
		BlobKey:  f.BlobKey,
		Size:     f.BlobSize,
		MimeType: f.MimeType,
	}
	if f.FolderID != nil {
		ref.FolderID = *f.FolderID
	}

	return ref
}

func folderRef(f *model.Folder) queue.FolderRef {
	ref := queue.FolderRef{
		FolderID: f.ID,
		Name:     f.Name,
		OwnerID:  f.OwnerID,
		Path:     f.Path,
	}
	if f.ParentID != nil {
		ref.ParentID = *f.ParentID
	}

	return ref
}

func (p eventPublisher) objectStored(ctx context.Context, f *model.File) {
	p.publish(ctx, configs.GetConfig().Events.Object.Stored, queue.TopicObjectStored, func() (any, error) {
		return queue.ObjectStoredPayload{Object: objectRef(f)}, nil
	})
}

func (p eventPublisher) objectDeleted(ctx context.Context, f *model.File, blobDeleted bool) {
	p.publish(ctx, configs.GetConfig().Events.Object.Deleted, queue.TopicObjectDeleted, func() (any, error) {
		return queue.ObjectDeletedPayload{Object: objectRef(f), BlobDeleted: blobDeleted}, nil
	})
}

func (p eventPublisher) objectRenamed(ctx context.Context, f *model.File, oldName string) {
	p.publish(ctx, configs.GetConfig().Events.Object.Renamed, queue.TopicObjectRenamed, func() (any, error) {
		return queue.ObjectRenamedPayload{Object: objectRef(f), OldName: oldName}, nil
	})
}

func (p eventPublisher) objectMoved(ctx context.Context, f *model.File, oldFolderID string) {
	p.publish(ctx, configs.GetConfig().Events.Object.Moved, queue.TopicObjectMoved, func() (any, error) {
		return queue.ObjectMovedPayload{Object: objectRef(f), OldFolderID: oldFolderID}, nil
	})
}

func (p eventPublisher) folderCreated(ctx context.Context, f *model.Folder) {
	p.publish(ctx, configs.GetConfig().Events.Folder.Created, queue.TopicFolderCreated, func() (any, error) {
		return queue.FolderCreatedPayload{Folder: folderRef(f)}, nil
	})
}

func (p eventPublisher) folderRenamed(ctx context.Context, f *model.Folder, oldPath string, affected int64) {
	p.publish(ctx, configs.GetConfig().Events.Folder.Renamed, queue.TopicFolderRenamed, func() (any, error) {
		return queue.FolderRenamedPayload{Folder: folderRef(f), OldPath: oldPath, Affected: affected}, nil
	})
}

func (p eventPublisher) folderDeleted(ctx context.Context, f *model.Folder, folders, files, blobFailures int64) {
	p.publish(ctx, configs.GetConfig().Events.Folder.Deleted, queue.TopicFolderDeleted, func() (any, error) {
		return queue.FolderDeletedPayload{
			Folder:         folderRef(f),
			FoldersDeleted: folders,
			FilesDeleted:   files,
			BlobFailures:   blobFailures,
		}, nil
	})
}

func sharePayload(sh *model.Share) queue.SharePayload {
	p := queue.SharePayload{
		ShareID:    sh.ID,
		SharedWith: sh.SharedWith,
		SharedBy:   sh.SharedBy,
		Permission: string(sh.Permission),
	}
	if sh.FileID != nil {
		p.FileID = *sh.FileID
	}

	if sh.FolderID != nil {
		p.FolderID = *sh.FolderID
	}

	return p
}

func (p eventPublisher) shareGranted(ctx context.Context, sh *model.Share) {
	p.publish(ctx, configs.GetConfig().Events.Share.Granted, queue.TopicShareGranted, func() (any, error) {
		return sharePayload(sh), nil
	})
}

func (p eventPublisher) shareRevoked(ctx context.Context, sh *model.Share) {
	p.publish(ctx, configs.GetConfig().Events.Share.Revoked, queue.TopicShareRevoked, func() (any, error) {
		return sharePayload(sh), nil
	})
}

func (p eventPublisher) linkIssued(ctx context.Context, f *model.File) {
	p.publish(ctx, configs.GetConfig().Events.Link.Issued, queue.TopicLinkIssued, func() (any, error) {
		return queue.LinkPayload{FileID: f.ID, OwnerID: f.OwnerID, ExpiresAt: f.PublicExpiresAt}, nil
	})
}

func (p eventPublisher) linkRevoked(ctx context.Context, f *model.File) {
	p.publish(ctx, configs.GetConfig().Events.Link.Revoked, queue.TopicLinkRevoked, func() (any, error) {
		return queue.LinkPayload{FileID: f.ID, OwnerID: f.OwnerID}, nil
	})
}
