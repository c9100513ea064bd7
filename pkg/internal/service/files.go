package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/opshub/opsvault/pkg/configs"
	ctxPkg "github.com/opshub/opsvault/pkg/context"
	"github.com/opshub/opsvault/pkg/internal/model"
	"github.com/opshub/opsvault/pkg/internal/storage/db"
	"github.com/opshub/opsvault/pkg/internal/storage/kv"
	"github.com/opshub/opsvault/pkg/internal/storage/mq"
	"github.com/opshub/opsvault/pkg/internal/storage/s3"
	"github.com/opshub/opsvault/pkg/internal/types"
	nlog "github.com/opshub/opsvault/pkg/log"
)

// FileService 负责文件元数据与 blob 的两段式管理：
// 内容先写入对象存储，元数据随后落库；两者之间不跨系统加事务，
// 落库失败时 blob 成为孤儿，记录日志后接受泄漏，由离线清理兜底.
type FileService struct {
	dbc    *db.Client
	blob   s3.BlobStore
	kvc    *kv.Client
	events eventPublisher
}

// NewFileService 创建并返回一个新的 FileService 实例.
func NewFileService(c context.Context) *FileService {
	return &FileService{
		dbc:    ctxPkg.GetDBClient(c),
		blob:   ctxPkg.GetS3Client(c),
		kvc:    ctxPkg.GetKVClient(c),
		events: eventPublisher{mqc: ctxPkg.GetMQClient(c)},
	}
}

// newFileServiceWith 显式注入依赖，测试使用.
func newFileServiceWith(dbc *db.Client, blob s3.BlobStore, kvc *kv.Client, mqc *mq.Client) *FileService {
	return &FileService{dbc: dbc, blob: blob, kvc: kvc, events: eventPublisher{mqc: mqc}}
}

// UploadInput 上传输入，内容来自 multipart 表单.
type UploadInput struct {
	Name        string
	FolderID    *string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// checkFolderOwned 校验目标文件夹存在且归属 owner，folderID 为空表示根级.
func checkFolderOwned(tx *gorm.DB, owner string, folderID *string) error {
	if folderID == nil {
		return nil
	}

	var count int64
	if err := tx.Model(&model.Folder{}).
		Where("id = ? AND owner_id = ?", *folderID, owner).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check folder: %w", err)
	}

	if count == 0 {
		return joinMessage(ErrNotFound, "folder not found")
	}

	return nil
}

// siblingFileQuery 构造同级文件查询.
func siblingFileQuery(tx *gorm.DB, owner string, folderID *string) *gorm.DB {
	q := tx.Model(&model.File{}).Where("owner_id = ?", owner)
	if folderID == nil {
		return q.Where("folder_id IS NULL")
	}

	return q.Where("folder_id = ?", *folderID)
}

// Upload 上传文件：先检查大小与同级名称冲突，再写 blob，最后在事务内
// 重查冲突并提交元数据. 超过大小上限返回 ErrPayloadTooLarge.
func (s *FileService) Upload(ctx context.Context, owner string, in *UploadInput) (*types.FileInfo, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	if s.blob == nil {
		return nil, joinMessage(ErrBackendUnavailable, "blob storage not available")
	}

	name, err := normalizeNodeName(in.Name, 512)
	if err != nil {
		return nil, err
	}

	maxBytes := configs.GetConfig().Vault.MaxUploadBytes()
	if in.Size > maxBytes {
		return nil, joinMessage(ErrPayloadTooLarge,
			fmt.Sprintf("file exceeds upload limit of %d bytes", maxBytes))
	}

	gdb := s.dbc.GetDB()

	if err := checkFolderOwned(gdb, owner, in.FolderID); err != nil {
		return nil, err
	}

	// 预检冲突，避免为注定失败的请求白写一个 blob
	var count int64
	if err := siblingFileQuery(gdb, owner, in.FolderID).Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check sibling names: %w", err)
	}

	if count > 0 {
		return nil, joinMessage(ErrConflict, "a file with this name already exists here")
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	blobKey := buildBlobKey(owner, name)

	if err := s.blob.Put(ctx, blobKey, in.Reader, in.Size, contentType); err != nil {
		return nil, joinMessage(ErrBackendUnavailable, fmt.Sprintf("store blob: %v", err))
	}

	f := model.File{
		ID:       newID(fileIDPrefix),
		Name:     name,
		FolderID: in.FolderID,
		OwnerID:  owner,
		BlobKey:  blobKey,
		BlobSize: in.Size,
		MimeType: contentType,
	}

	err = gdb.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := siblingFileQuery(tx, owner, in.FolderID).Where("name = ?", name).Count(&n).Error; err != nil {
			return fmt.Errorf("check sibling names: %w", err)
		}

		if n > 0 {
			return joinMessage(ErrConflict, "a file with this name already exists here")
		}

		if err := tx.Create(&f).Error; err != nil {
			// 并发上传同名同级时由唯一索引兜底
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return joinMessage(ErrConflict, "a file with this name already exists here")
			}

			return fmt.Errorf("create file metadata: %w", err)
		}

		return nil
	})
	if err != nil {
		// 元数据没落库，blob 成为孤儿；记录键便于离线清理
		nlog.Logger().Error().Err(err).
			Str("blob_key", blobKey).
			Str("owner", owner).
			Msg("metadata commit failed, blob orphaned")

		return nil, err
	}

	s.events.objectStored(ctx, &f)

	info := fileInfo(&f)

	return &info, nil
}

// Rename 重命名文件，不触碰对象存储键.
func (s *FileService) Rename(ctx context.Context, owner, fileID, newName string) (*types.FileInfo, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	name, err := normalizeNodeName(newName, 512)
	if err != nil {
		return nil, err
	}

	var (
		renamed model.File
		oldName string
	)

	err = s.dbc.GetDB().Transaction(func(tx *gorm.DB) error {
		var f model.File
		if err := tx.Where("id = ? AND owner_id = ?", fileID, owner).First(&f).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return joinMessage(ErrNotFound, "file not found")
			}

			return fmt.Errorf("load file: %w", err)
		}

		if f.Name == name {
			renamed = f

			return nil
		}

		var count int64
		if err := siblingFileQuery(tx, owner, f.FolderID).
			Where("name = ? AND id <> ?", name, f.ID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check sibling names: %w", err)
		}

		if count > 0 {
			return joinMessage(ErrConflict, "a file with this name already exists here")
		}

		oldName = f.Name

		if err := tx.Model(&model.File{}).Where("id = ?", f.ID).Update("name", name).Error; err != nil {
			return fmt.Errorf("rename file: %w", err)
		}

		f.Name = name
		renamed = f

		return nil
	})
	if err != nil {
		return nil, err
	}

	if oldName != "" {
		s.events.objectRenamed(ctx, &renamed, oldName)
	}

	info := fileInfo(&renamed)

	return &info, nil
}

// Move 把文件移动到另一个文件夹（或根级），目标同级不允许重名.
func (s *FileService) Move(ctx context.Context, owner, fileID string, targetFolderID *string) (*types.FileInfo, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	var (
		moved       model.File
		oldFolderID string
		changed     bool
	)

	err := s.dbc.GetDB().Transaction(func(tx *gorm.DB) error {
		var f model.File
		if err := tx.Where("id = ? AND owner_id = ?", fileID, owner).First(&f).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return joinMessage(ErrNotFound, "file not found")
			}

			return fmt.Errorf("load file: %w", err)
		}

		if sameFolder(f.FolderID, targetFolderID) {
			moved = f

			return nil
		}

		if err := checkFolderOwned(tx, owner, targetFolderID); err != nil {
			return err
		}

		var count int64
		if err := siblingFileQuery(tx, owner, targetFolderID).Where("name = ?", f.Name).Count(&count).Error; err != nil {
			return fmt.Errorf("check sibling names: %w", err)
		}

		if count > 0 {
			return joinMessage(ErrConflict, "a file with this name already exists in the target folder")
		}

		if f.FolderID != nil {
			oldFolderID = *f.FolderID
		}

		if err := tx.Model(&model.File{}).Where("id = ?", f.ID).Update("folder_id", targetFolderID).Error; err != nil {
			return fmt.Errorf("move file: %w", err)
		}

		f.FolderID = targetFolderID
		moved = f
		changed = true

		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.events.objectMoved(ctx, &moved, oldFolderID)
	}

	info := fileInfo(&moved)

	return &info, nil
}

// sameFolder 比较两个可空文件夹引用.
func sameFolder(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}

// Delete 删除文件：先尽力删除 blob（失败只记日志），再在事务内删除
// 共享授权与元数据行. 公共链接随行一并消失.
func (s *FileService) Delete(ctx context.Context, owner, fileID string) error {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return errors.New("db not initialized")
	}

	gdb := s.dbc.GetDB()

	var f model.File
	if err := gdb.Where("id = ? AND owner_id = ?", fileID, owner).First(&f).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return joinMessage(ErrNotFound, "file not found")
		}

		return fmt.Errorf("load file: %w", err)
	}

	blobDeleted := true

	if s.blob != nil {
		if err := s.blob.Delete(ctx, f.BlobKey); err != nil {
			blobDeleted = false

			nlog.Logger().Warn().Err(err).
				Str("blob_key", f.BlobKey).
				Str("file_id", f.ID).
				Msg("blob delete failed, metadata removed anyway")
		}
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", f.ID).Delete(&model.Share{}).Error; err != nil {
			return fmt.Errorf("delete file shares: %w", err)
		}

		if err := tx.Where("id = ?", f.ID).Delete(&model.File{}).Error; err != nil {
			return fmt.Errorf("delete file: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.dropPublicCache(ctx, &f)
	s.events.objectDeleted(ctx, &f, blobDeleted)

	return nil
}

// List 列出某一级的文件，folderID 为空表示根级.
func (s *FileService) List(ctx context.Context, owner string, folderID *string) (*types.ListFilesResponse, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	if err := checkFolderOwned(s.dbc.GetDB(), owner, folderID); err != nil {
		return nil, err
	}

	var files []model.File
	if err := siblingFileQuery(s.dbc.GetDB(), owner, folderID).Order("name").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	resp := &types.ListFilesResponse{Files: make([]types.FileInfo, 0, len(files)), Total: len(files)}
	for i := range files {
		resp.Files = append(resp.Files, fileInfo(&files[i]))
	}

	return resp, nil
}

// fileInfo 转换为响应结构，对象存储键不外泄.
func fileInfo(f *model.File) types.FileInfo {
	return types.FileInfo{
		ID:              f.ID,
		Name:            f.Name,
		FolderID:        f.FolderID,
		OwnerID:         f.OwnerID,
		Size:            f.BlobSize,
		MimeType:        f.MimeType,
		IsPublic:        f.IsPublic,
		PublicExpiresAt: f.PublicExpiresAt,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}
