package service

import (
	"context"
	crand "crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/opshub/opsvault/pkg/cache"
	"github.com/opshub/opsvault/pkg/configs"
	"github.com/opshub/opsvault/pkg/internal/model"
	"github.com/opshub/opsvault/pkg/internal/types"
	nlog "github.com/opshub/opsvault/pkg/log"
)

const publicCacheKeyPrefix = "public:link:"

// publicResolved 公共链接解析的缓存载体，含签名下载所需的内部字段.
// 只进 KV 缓存，绝不进 HTTP 响应.
type publicResolved struct {
	FileID    string     `json:"file_id"`
	Name      string     `json:"name"`
	BlobKey   string     `json:"blob_key"`
	Size      int64      `json:"size"`
	MimeType  string     `json:"mime_type"`
	OwnerName string     `json:"owner_name"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// newPublicToken 生成不可猜测的公共链接令牌.
func newPublicToken(nbytes int) (string, error) {
	buf := make([]byte, nbytes)
	if _, err := crand.Read(buf); err != nil {
		return "", fmt.Errorf("generate public token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// IssuePublicLink 为文件签发公共链接. 已是公共文件时重新生成令牌，
// 旧令牌立即失效. ttl_hours 为空表示永不过期.
func (s *FileService) IssuePublicLink(ctx context.Context, owner, fileID string, req *types.IssuePublicLinkRequest) (*types.PublicLinkInfo, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	cfg := configs.GetConfig().Vault

	var expiresAt *time.Time

	if req != nil && req.TTLHours != nil {
		if *req.TTLHours < 1 || *req.TTLHours > cfg.MaxPublicTTLHours {
			return nil, validationError(fmt.Sprintf("ttl_hours must be between 1 and %d", cfg.MaxPublicTTLHours))
		}

		t := time.Now().UTC().Add(time.Duration(*req.TTLHours) * time.Hour)
		expiresAt = &t
	}

	token, err := newPublicToken(cfg.PublicTokenBytes)
	if err != nil {
		return nil, err
	}

	var (
		updated  model.File
		oldToken *string
	)

	err = s.dbc.GetDB().Transaction(func(tx *gorm.DB) error {
		var f model.File
		if err := tx.Where("id = ? AND owner_id = ?", fileID, owner).First(&f).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return joinMessage(ErrNotFound, "file not found")
			}

			return fmt.Errorf("load file: %w", err)
		}

		oldToken = f.PublicToken

		if err := tx.Model(&model.File{}).Where("id = ?", f.ID).Updates(map[string]any{
			"is_public":         true,
			"public_token":      token,
			"public_expires_at": expiresAt,
		}).Error; err != nil {
			return fmt.Errorf("issue public link: %w", err)
		}

		f.IsPublic = true
		f.PublicToken = &token
		f.PublicExpiresAt = expiresAt
		updated = f

		return nil
	})
	if err != nil {
		return nil, err
	}

	if oldToken != nil {
		s.dropPublicCacheToken(ctx, *oldToken)
	}

	s.events.linkIssued(ctx, &updated)

	return &types.PublicLinkInfo{Token: token, ExpiresAt: expiresAt}, nil
}

// RevokePublicLink 撤销公共链接. 对未公开的文件撤销是无操作成功（幂等）.
func (s *FileService) RevokePublicLink(ctx context.Context, owner, fileID string) error {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return errors.New("db not initialized")
	}

	var (
		revoked model.File
		hadLink bool
	)

	err := s.dbc.GetDB().Transaction(func(tx *gorm.DB) error {
		var f model.File
		if err := tx.Where("id = ? AND owner_id = ?", fileID, owner).First(&f).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return joinMessage(ErrNotFound, "file not found")
			}

			return fmt.Errorf("load file: %w", err)
		}

		if !f.IsPublic {
			return nil
		}

		hadLink = true
		revoked = f

		if err := tx.Model(&model.File{}).Where("id = ?", f.ID).Updates(map[string]any{
			"is_public":         false,
			"public_token":      nil,
			"public_expires_at": nil,
		}).Error; err != nil {
			return fmt.Errorf("revoke public link: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if hadLink {
		s.dropPublicCache(ctx, &revoked)
		s.events.linkRevoked(ctx, &revoked)
	}

	return nil
}

// ResolvePublic 按令牌解析公共文件信息，无需认证.
// 过期在读取时判定并返回 ErrGone；已撤销或不存在的令牌返回 ErrNotFound.
func (s *FileService) ResolvePublic(ctx context.Context, token string) (*types.PublicFileInfo, error) {
	r, err := s.resolvePublicToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return &types.PublicFileInfo{
		Name:      r.Name,
		Size:      r.Size,
		MimeType:  r.MimeType,
		OwnerName: r.OwnerName,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}, nil
}

// ResolvePublicDownload 按令牌解析并签发下载地址，无需认证.
func (s *FileService) ResolvePublicDownload(ctx context.Context, token string) (*types.DownloadTargetResponse, error) {
	if s.blob == nil {
		return nil, joinMessage(ErrBackendUnavailable, "blob storage not available")
	}

	r, err := s.resolvePublicToken(ctx, token)
	if err != nil {
		return nil, err
	}

	ttl := configs.GetConfig().Vault.PresignTTL()

	url, err := s.blob.SignDownload(ctx, r.BlobKey, ttl, r.Name)
	if err != nil {
		return nil, joinMessage(ErrBackendUnavailable, fmt.Sprintf("sign download url: %v", err))
	}

	return &types.DownloadTargetResponse{URL: url, ExpiresIn: int(ttl.Seconds())}, nil
}

// resolvePublicToken 解析令牌，优先走 KV 缓存. 缓存命中也要重新判定过期，
// 保证缓存有效期不会延长链接寿命.
func (s *FileService) resolvePublicToken(ctx context.Context, token string) (*publicResolved, error) {
	if token == "" {
		return nil, joinMessage(ErrNotFound, "public link not found")
	}

	key := publicCacheKeyPrefix + token
	cacheTTL := configs.GetConfig().Vault.PublicCacheDuration()
	useCache := s.kvc != nil && cacheTTL > 0

	if useCache {
		c := cache.NewCache(s.kvc)
		if r, err := cache.Get[publicResolved](ctx, c, key); err == nil && r.FileID != "" {
			if expired(r.ExpiresAt) {
				return nil, joinMessage(ErrGone, "public link expired")
			}

			return &r, nil
		}
	}

	r, err := s.loadPublicToken(token)
	if err != nil {
		return nil, err
	}

	if expired(r.ExpiresAt) {
		return nil, joinMessage(ErrGone, "public link expired")
	}

	if useCache {
		c := cache.NewCache(s.kvc)
		if err := cache.Set(ctx, c, key, *r, cacheTTL); err != nil {
			nlog.Logger().Debug().Err(err).Msg("cache public link failed")
		}
	}

	return r, nil
}

// loadPublicToken 从数据库解析令牌并补齐所有者展示名.
func (s *FileService) loadPublicToken(token string) (*publicResolved, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	gdb := s.dbc.GetDB()

	var f model.File
	if err := gdb.Where("public_token = ? AND is_public = ?", token, true).First(&f).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, joinMessage(ErrNotFound, "public link not found")
		}

		return nil, fmt.Errorf("resolve public link: %w", err)
	}

	ownerName := f.OwnerID

	var u model.User
	if err := gdb.Where("email = ?", f.OwnerID).First(&u).Error; err == nil && u.DisplayName != "" {
		ownerName = u.DisplayName
	}

	return &publicResolved{
		FileID:    f.ID,
		Name:      f.Name,
		BlobKey:   f.BlobKey,
		Size:      f.BlobSize,
		MimeType:  f.MimeType,
		OwnerName: ownerName,
		CreatedAt: f.CreatedAt,
		ExpiresAt: f.PublicExpiresAt,
	}, nil
}

// expired 判定读取时点的过期状态，nil 表示永不过期.
func expired(t *time.Time) bool {
	return t != nil && time.Now().UTC().After(*t)
}

// dropPublicCache 清理文件当前令牌的缓存条目.
func (s *FileService) dropPublicCache(ctx context.Context, f *model.File) {
	if f.PublicToken != nil {
		s.dropPublicCacheToken(ctx, *f.PublicToken)
	}
}

func (s *FileService) dropPublicCacheToken(ctx context.Context, token string) {
	if s.kvc == nil {
		return
	}

	if err := cache.NewCache(s.kvc).Delete(ctx, publicCacheKeyPrefix+token); err != nil {
		nlog.Logger().Debug().Err(err).Msg("drop public link cache failed")
	}
}
