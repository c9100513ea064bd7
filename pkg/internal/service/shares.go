package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	ctxPkg "github.com/opshub/opsvault/pkg/context"
	"github.com/opshub/opsvault/pkg/internal/model"
	"github.com/opshub/opsvault/pkg/internal/storage/db"
	"github.com/opshub/opsvault/pkg/internal/storage/mq"
	"github.com/opshub/opsvault/pkg/internal/types"
)

// ShareService 负责共享授权：把单个文件或文件夹授权给另一位注册用户.
// 同一 (目标, 被授权人) 只保留一行授权，重复授权更新权限.
type ShareService struct {
	dbc    *db.Client
	events eventPublisher
}

// NewShareService 创建并返回一个新的 ShareService 实例.
func NewShareService(c context.Context) *ShareService {
	return &ShareService{
		dbc:    ctxPkg.GetDBClient(c),
		events: eventPublisher{mqc: ctxPkg.GetMQClient(c)},
	}
}

// newShareServiceWith 显式注入依赖，测试使用.
func newShareServiceWith(dbc *db.Client, mqc *mq.Client) *ShareService {
	return &ShareService{dbc: dbc, events: eventPublisher{mqc: mqc}}
}

// Grant 授权共享. 目标必须归授权人所有，被授权人必须是已注册用户，
// 且不能授权给自己. 已有同目标同被授权人的授权时更新权限（幂等）.
func (s *ShareService) Grant(ctx context.Context, grantor string, req *types.GrantShareRequest) (*types.ShareInfo, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	if (req.FileID == nil) == (req.FolderID == nil) {
		return nil, validationError("exactly one of file_id and folder_id must be set")
	}

	perm := model.Permission(req.Permission)
	if !perm.Valid() {
		return nil, validationError("permission must be view or edit")
	}

	if req.SharedWith == grantor {
		return nil, validationError("cannot share with yourself")
	}

	var (
		share      model.Share
		targetName string
	)

	err := s.dbc.GetDB().Transaction(func(tx *gorm.DB) error {
		// 被授权人必须已注册
		var userCount int64
		if err := tx.Model(&model.User{}).Where("email = ?", req.SharedWith).Count(&userCount).Error; err != nil {
			return fmt.Errorf("check grantee: %w", err)
		}

		if userCount == 0 {
			return joinMessage(ErrNotFound, "grantee is not a registered user")
		}

		existing := tx.Model(&model.Share{}).Where("shared_with = ?", req.SharedWith)

		if req.FileID != nil {
			var f model.File
			if err := tx.Where("id = ? AND owner_id = ?", *req.FileID, grantor).First(&f).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return joinMessage(ErrNotFound, "file not found")
				}

				return fmt.Errorf("load file: %w", err)
			}

			targetName = f.Name
			existing = existing.Where("file_id = ?", *req.FileID)
		} else {
			var fd model.Folder
			if err := tx.Where("id = ? AND owner_id = ?", *req.FolderID, grantor).First(&fd).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return joinMessage(ErrNotFound, "folder not found")
				}

				return fmt.Errorf("load folder: %w", err)
			}

			targetName = fd.Name
			existing = existing.Where("folder_id = ?", *req.FolderID)
		}

		var prior model.Share
		err := existing.First(&prior).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			share = model.Share{
				ID:         newID(shareIDPrefix),
				FileID:     req.FileID,
				FolderID:   req.FolderID,
				SharedWith: req.SharedWith,
				SharedBy:   grantor,
				Permission: perm,
			}
			if err := tx.Create(&share).Error; err != nil {
				// 并发重复授权时由唯一索引兜底
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return joinMessage(ErrConflict, "share already exists for this grantee")
				}

				return fmt.Errorf("create share: %w", err)
			}
		case err != nil:
			return fmt.Errorf("load share: %w", err)
		default:
			if err := tx.Model(&model.Share{}).Where("id = ?", prior.ID).
				Update("permission", perm).Error; err != nil {
				return fmt.Errorf("update share permission: %w", err)
			}

			prior.Permission = perm
			share = prior
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.shareGranted(ctx, &share)

	info := shareInfo(&share, targetName)

	return &info, nil
}

// Revoke 撤销共享，只有当初的授权人可以撤销. 其他人看到的是 404.
func (s *ShareService) Revoke(ctx context.Context, user, shareID string) error {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return errors.New("db not initialized")
	}

	var share model.Share

	err := s.dbc.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", shareID).First(&share).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return joinMessage(ErrNotFound, "share not found")
			}

			return fmt.Errorf("load share: %w", err)
		}

		if share.SharedBy != user {
			return joinMessage(ErrNotFound, "share not found")
		}

		if err := tx.Where("id = ?", share.ID).Delete(&model.Share{}).Error; err != nil {
			return fmt.Errorf("delete share: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.events.shareRevoked(ctx, &share)

	return nil
}

// ListSharedWithMe 列出授权给当前用户的全部共享.
func (s *ShareService) ListSharedWithMe(ctx context.Context, user string) (*types.ListSharesResponse, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	var shares []model.Share
	if err := s.dbc.GetDB().Where("shared_with = ?", user).
		Order("created_at DESC").Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}

	return s.attachTargetNames(shares)
}

// ListSharesForTarget 列出某个文件或文件夹上的全部授权，仅所有者可见.
func (s *ShareService) ListSharesForTarget(ctx context.Context, owner string, fileID, folderID *string) (*types.ListSharesResponse, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	if (fileID == nil) == (folderID == nil) {
		return nil, validationError("exactly one of file_id and folder_id must be set")
	}

	gdb := s.dbc.GetDB()
	q := gdb.Model(&model.Share{})

	if fileID != nil {
		var count int64
		if err := gdb.Model(&model.File{}).Where("id = ? AND owner_id = ?", *fileID, owner).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check file: %w", err)
		}

		if count == 0 {
			return nil, joinMessage(ErrNotFound, "file not found")
		}

		q = q.Where("file_id = ?", *fileID)
	} else {
		var count int64
		if err := gdb.Model(&model.Folder{}).Where("id = ? AND owner_id = ?", *folderID, owner).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check folder: %w", err)
		}

		if count == 0 {
			return nil, joinMessage(ErrNotFound, "folder not found")
		}

		q = q.Where("folder_id = ?", *folderID)
	}

	var shares []model.Share
	if err := q.Order("created_at DESC").Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}

	return s.attachTargetNames(shares)
}

// CanAccess 判断用户能否看到目标：所有者恒可见，其余看直接授权.
// 文件夹授权不向其中的文件传递.
func (s *ShareService) CanAccess(ctx context.Context, user string, fileID, folderID *string) (bool, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return false, errors.New("db not initialized")
	}

	if (fileID == nil) == (folderID == nil) {
		return false, validationError("exactly one of file_id and folder_id must be set")
	}

	gdb := s.dbc.GetDB()

	if fileID != nil {
		var f model.File
		if err := gdb.Where("id = ?", *fileID).First(&f).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}

			return false, fmt.Errorf("load file: %w", err)
		}

		if f.OwnerID == user {
			return true, nil
		}

		var count int64
		if err := gdb.Model(&model.Share{}).
			Where("file_id = ? AND shared_with = ?", *fileID, user).
			Count(&count).Error; err != nil {
			return false, fmt.Errorf("check file share: %w", err)
		}

		return count > 0, nil
	}

	var fd model.Folder
	if err := gdb.Where("id = ?", *folderID).First(&fd).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("load folder: %w", err)
	}

	if fd.OwnerID == user {
		return true, nil
	}

	var count int64
	if err := gdb.Model(&model.Share{}).
		Where("folder_id = ? AND shared_with = ?", *folderID, user).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check folder share: %w", err)
	}

	return count > 0, nil
}

// attachTargetNames 批量补齐共享目标的名称.
func (s *ShareService) attachTargetNames(shares []model.Share) (*types.ListSharesResponse, error) {
	gdb := s.dbc.GetDB()

	fileIDs := make([]string, 0, len(shares))
	folderIDs := make([]string, 0, len(shares))

	for i := range shares {
		if shares[i].FileID != nil {
			fileIDs = append(fileIDs, *shares[i].FileID)
		}

		if shares[i].FolderID != nil {
			folderIDs = append(folderIDs, *shares[i].FolderID)
		}
	}

	fileNames := make(map[string]string, len(fileIDs))

	if len(fileIDs) > 0 {
		var files []model.File
		if err := gdb.Select("id", "name").Where("id IN ?", fileIDs).Find(&files).Error; err != nil {
			return nil, fmt.Errorf("load share targets: %w", err)
		}

		for i := range files {
			fileNames[files[i].ID] = files[i].Name
		}
	}

	folderNames := make(map[string]string, len(folderIDs))

	if len(folderIDs) > 0 {
		var folders []model.Folder
		if err := gdb.Select("id", "name").Where("id IN ?", folderIDs).Find(&folders).Error; err != nil {
			return nil, fmt.Errorf("load share targets: %w", err)
		}

		for i := range folders {
			folderNames[folders[i].ID] = folders[i].Name
		}
	}

	resp := &types.ListSharesResponse{Shares: make([]types.ShareInfo, 0, len(shares)), Total: len(shares)}

	for i := range shares {
		name := ""
		if shares[i].FileID != nil {
			name = fileNames[*shares[i].FileID]
		} else if shares[i].FolderID != nil {
			name = folderNames[*shares[i].FolderID]
		}

		resp.Shares = append(resp.Shares, shareInfo(&shares[i], name))
	}

	return resp, nil
}

// shareInfo 转换为响应结构.
func shareInfo(sh *model.Share, targetName string) types.ShareInfo {
	return types.ShareInfo{
		ID:         sh.ID,
		FileID:     sh.FileID,
		FolderID:   sh.FolderID,
		TargetName: targetName,
		SharedWith: sh.SharedWith,
		SharedBy:   sh.SharedBy,
		Permission: string(sh.Permission),
		CreatedAt:  sh.CreatedAt,
		UpdatedAt:  sh.UpdatedAt,
	}
}
