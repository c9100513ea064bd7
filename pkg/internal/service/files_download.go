package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/opshub/opsvault/pkg/configs"
	"github.com/opshub/opsvault/pkg/internal/model"
	"github.com/opshub/opsvault/pkg/internal/types"
)

// GetDownloadTarget 返回限时签名下载地址.
// 规则：所有者可下载；其他人必须持有针对该文件本身的共享授权，
// 文件夹共享不向其中的文件传递下载权. 文件存在但未授权时返回
// ErrForbidden，文件不存在时返回 ErrNotFound.
func (s *FileService) GetDownloadTarget(ctx context.Context, user, fileID string) (*types.DownloadTargetResponse, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	if s.blob == nil {
		return nil, joinMessage(ErrBackendUnavailable, "blob storage not available")
	}

	gdb := s.dbc.GetDB()

	var f model.File
	if err := gdb.Where("id = ?", fileID).First(&f).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, joinMessage(ErrNotFound, "file not found")
		}

		return nil, fmt.Errorf("load file: %w", err)
	}

	if f.OwnerID != user {
		var count int64
		if err := gdb.Model(&model.Share{}).
			Where("file_id = ? AND shared_with = ?", f.ID, user).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check file share: %w", err)
		}

		if count == 0 {
			return nil, joinMessage(ErrForbidden, "no permission to download this file")
		}
	}

	ttl := configs.GetConfig().Vault.PresignTTL()

	url, err := s.blob.SignDownload(ctx, f.BlobKey, ttl, f.Name)
	if err != nil {
		return nil, joinMessage(ErrBackendUnavailable, fmt.Sprintf("sign download url: %v", err))
	}

	return &types.DownloadTargetResponse{URL: url, ExpiresIn: int(ttl.Seconds())}, nil
}
