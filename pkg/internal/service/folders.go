package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	ctxPkg "github.com/opshub/opsvault/pkg/context"
	"github.com/opshub/opsvault/pkg/internal/model"
	"github.com/opshub/opsvault/pkg/internal/storage/db"
	"github.com/opshub/opsvault/pkg/internal/storage/mq"
	"github.com/opshub/opsvault/pkg/internal/storage/s3"
	"github.com/opshub/opsvault/pkg/internal/types"
	nlog "github.com/opshub/opsvault/pkg/log"
)

// FolderService 负责文件夹树的维护.
// 树以物化路径冗余存储：任何时刻 Path 都等于祖先链的名称拼接，
// 重命名在同一事务内重写整棵子树，删除按路径前缀收集子树后级联清理.
type FolderService struct {
	dbc    *db.Client
	blob   s3.BlobStore
	events eventPublisher
}

// NewFolderService 创建并返回一个新的 FolderService 实例.
func NewFolderService(c context.Context) *FolderService {
	return &FolderService{
		dbc:    ctxPkg.GetDBClient(c),
		blob:   ctxPkg.GetS3Client(c),
		events: eventPublisher{mqc: ctxPkg.GetMQClient(c)},
	}
}

// newFolderServiceWith 显式注入依赖，测试使用.
func newFolderServiceWith(dbc *db.Client, blob s3.BlobStore, mqc *mq.Client) *FolderService {
	return &FolderService{dbc: dbc, blob: blob, events: eventPublisher{mqc: mqc}}
}

// normalizeNodeName 校验并清理节点名称：不允许为空、包含路径分隔符或超长.
func normalizeNodeName(name string, maxLen int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationError("name is required")
	}

	if strings.ContainsAny(name, "/\\") {
		return "", validationError("name must not contain path separators")
	}

	if len(name) > maxLen {
		return "", validationError(fmt.Sprintf("name longer than %d bytes", maxLen))
	}

	return name, nil
}

// escapeLike 转义 LIKE 模式中的特殊字符.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)

	return s
}

// siblingFolderQuery 构造同级文件夹查询，parent_id 为 NULL 表示根级.
func siblingFolderQuery(tx *gorm.DB, owner string, parentID *string) *gorm.DB {
	q := tx.Model(&model.Folder{}).Where("owner_id = ?", owner)
	if parentID == nil {
		return q.Where("parent_id IS NULL")
	}

	return q.Where("parent_id = ?", *parentID)
}

// Create 创建文件夹，同级（含根级）名称不可重复.
func (s *FolderService) Create(ctx context.Context, owner string, req *types.CreateFolderRequest) (*types.FolderInfo, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	name, err := normalizeNodeName(req.Name, 255)
	if err != nil {
		return nil, err
	}

	var created model.Folder

	err = s.dbc.GetDB().Transaction(func(tx *gorm.DB) error {
		parentPath := ""

		if req.ParentID != nil {
			var parent model.Folder
			if err := tx.Where("id = ? AND owner_id = ?", *req.ParentID, owner).First(&parent).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return joinMessage(ErrNotFound, "parent folder not found")
				}

				return fmt.Errorf("load parent folder: %w", err)
			}

			parentPath = parent.Path
		}

		var count int64
		if err := siblingFolderQuery(tx, owner, req.ParentID).Where("name = ?", name).Count(&count).Error; err != nil {
			return fmt.Errorf("check sibling names: %w", err)
		}

		if count > 0 {
			return joinMessage(ErrConflict, "a folder with this name already exists here")
		}

		created = model.Folder{
			ID:       newID(folderIDPrefix),
			Name:     name,
			ParentID: req.ParentID,
			OwnerID:  owner,
			Path:     parentPath + "/" + name,
		}

		if err := tx.Create(&created).Error; err != nil {
			// 并发创建同名同级时由唯一索引兜底
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return joinMessage(ErrConflict, "a folder with this name already exists here")
			}

			return fmt.Errorf("create folder: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.folderCreated(ctx, &created)

	info := folderInfo(&created)

	return &info, nil
}

// Rename 重命名文件夹并在同一事务内重写整棵子树的物化路径.
// 事务失败时不会留下半新半旧的路径.
func (s *FolderService) Rename(ctx context.Context, owner, folderID, newName string) (*types.FolderInfo, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	name, err := normalizeNodeName(newName, 255)
	if err != nil {
		return nil, err
	}

	var (
		renamed  model.Folder
		oldPath  string
		affected int64
	)

	err = s.dbc.GetDB().Transaction(func(tx *gorm.DB) error {
		var f model.Folder
		if err := tx.Where("id = ? AND owner_id = ?", folderID, owner).First(&f).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return joinMessage(ErrNotFound, "folder not found")
			}

			return fmt.Errorf("load folder: %w", err)
		}

		if f.Name == name {
			renamed = f

			return nil
		}

		var count int64
		if err := siblingFolderQuery(tx, owner, f.ParentID).
			Where("name = ? AND id <> ?", name, f.ID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check sibling names: %w", err)
		}

		if count > 0 {
			return joinMessage(ErrConflict, "a folder with this name already exists here")
		}

		oldPath = f.Path
		newPath := oldPath[:len(oldPath)-len(f.Name)] + name

		if err := tx.Model(&model.Folder{}).Where("id = ?", f.ID).
			Updates(map[string]any{"name": name, "path": newPath}).Error; err != nil {
			return fmt.Errorf("rename folder: %w", err)
		}

		// 逐行重写后代路径；只替换前缀，避免 SQL REPLACE 误伤路径中间的同名片段
		var descendants []model.Folder
		if err := tx.Where("owner_id = ? AND path LIKE ? ESCAPE '\\'", owner, escapeLike(oldPath)+"/%").
			Find(&descendants).Error; err != nil {
			return fmt.Errorf("load descendants: %w", err)
		}

		for i := range descendants {
			rewritten := newPath + descendants[i].Path[len(oldPath):]
			if err := tx.Model(&model.Folder{}).Where("id = ?", descendants[i].ID).
				Update("path", rewritten).Error; err != nil {
				return fmt.Errorf("rewrite descendant path: %w", err)
			}
		}

		affected = int64(len(descendants))

		f.Name = name
		f.Path = newPath
		renamed = f

		return nil
	})
	if err != nil {
		return nil, err
	}

	if oldPath != "" {
		s.events.folderRenamed(ctx, &renamed, oldPath, affected)
	}

	info := folderInfo(&renamed)

	return &info, nil
}

// Delete 级联删除文件夹：按路径前缀收集整棵子树与其中文件，
// 先尽力删除对象存储中的 blob（失败只记日志），再在一个事务中删除
// 相关共享授权、文件行与文件夹行. blob 删除失败不会阻止元数据删除.
func (s *FolderService) Delete(ctx context.Context, owner, folderID string) (*types.DeleteFolderResponse, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	gdb := s.dbc.GetDB()

	var root model.Folder
	if err := gdb.Where("id = ? AND owner_id = ?", folderID, owner).First(&root).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, joinMessage(ErrNotFound, "folder not found")
		}

		return nil, fmt.Errorf("load folder: %w", err)
	}

	var descendants []model.Folder
	if err := gdb.Where("owner_id = ? AND path LIKE ? ESCAPE '\\'", owner, escapeLike(root.Path)+"/%").
		Find(&descendants).Error; err != nil {
		return nil, fmt.Errorf("load descendants: %w", err)
	}

	folderIDs := make([]string, 0, len(descendants)+1)
	folderIDs = append(folderIDs, root.ID)

	for i := range descendants {
		folderIDs = append(folderIDs, descendants[i].ID)
	}

	var files []model.File
	if err := gdb.Where("owner_id = ? AND folder_id IN ?", owner, folderIDs).Find(&files).Error; err != nil {
		return nil, fmt.Errorf("load contained files: %w", err)
	}

	// blob 删除尽力而为，每个失败恰好记一条日志
	var blobFailures int64

	if s.blob != nil {
		for i := range files {
			if err := s.blob.Delete(ctx, files[i].BlobKey); err != nil {
				blobFailures++

				nlog.Logger().Warn().Err(err).
					Str("blob_key", files[i].BlobKey).
					Str("file_id", files[i].ID).
					Msg("blob delete failed during folder cascade, metadata removed anyway")
			}
		}
	}

	fileIDs := make([]string, 0, len(files))
	for i := range files {
		fileIDs = append(fileIDs, files[i].ID)
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		if len(fileIDs) > 0 {
			if err := tx.Where("file_id IN ?", fileIDs).Delete(&model.Share{}).Error; err != nil {
				return fmt.Errorf("delete file shares: %w", err)
			}
		}

		if err := tx.Where("folder_id IN ?", folderIDs).Delete(&model.Share{}).Error; err != nil {
			return fmt.Errorf("delete folder shares: %w", err)
		}

		if len(fileIDs) > 0 {
			if err := tx.Where("id IN ?", fileIDs).Delete(&model.File{}).Error; err != nil {
				return fmt.Errorf("delete files: %w", err)
			}
		}

		if err := tx.Where("id IN ?", folderIDs).Delete(&model.Folder{}).Error; err != nil {
			return fmt.Errorf("delete folders: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := &types.DeleteFolderResponse{
		FoldersDeleted: int64(len(folderIDs)),
		FilesDeleted:   int64(len(fileIDs)),
	}

	s.events.folderDeleted(ctx, &root, resp.FoldersDeleted, resp.FilesDeleted, blobFailures)

	return resp, nil
}

// GetWithBreadcrumb 返回文件夹详情、面包屑与直接子项.
// 非所有者需要持有该文件夹的直接共享授权；此时面包屑只含该文件夹本身，
// 不暴露授权范围之外的祖先结构.
func (s *FolderService) GetWithBreadcrumb(ctx context.Context, user, folderID string) (*types.FolderContentResponse, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	gdb := s.dbc.GetDB()

	var f model.Folder
	if err := gdb.Where("id = ?", folderID).First(&f).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, joinMessage(ErrNotFound, "folder not found")
		}

		return nil, fmt.Errorf("load folder: %w", err)
	}

	isOwner := f.OwnerID == user
	if !isOwner {
		var count int64
		if err := gdb.Model(&model.Share{}).
			Where("folder_id = ? AND shared_with = ?", folderID, user).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("check folder share: %w", err)
		}

		if count == 0 {
			// 与真正不存在不可区分
			return nil, joinMessage(ErrNotFound, "folder not found")
		}
	}

	resp := &types.FolderContentResponse{Folder: folderInfo(&f)}

	if isOwner {
		breadcrumb, err := s.breadcrumbFor(gdb, &f)
		if err != nil {
			return nil, err
		}

		resp.Breadcrumb = breadcrumb
	} else {
		resp.Breadcrumb = []types.BreadcrumbItem{{ID: f.ID, Name: f.Name, Path: f.Path}}
	}

	var subfolders []model.Folder
	if err := gdb.Where("parent_id = ?", f.ID).Order("name").Find(&subfolders).Error; err != nil {
		return nil, fmt.Errorf("list subfolders: %w", err)
	}

	for i := range subfolders {
		resp.Subfolders = append(resp.Subfolders, folderInfo(&subfolders[i]))
	}

	var files []model.File
	if err := gdb.Where("folder_id = ?", f.ID).Order("name").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	for i := range files {
		resp.Files = append(resp.Files, fileInfo(&files[i]))
	}

	return resp, nil
}

// breadcrumbFor 由物化路径推出从根到当前节点的导航链.
func (s *FolderService) breadcrumbFor(gdb *gorm.DB, f *model.Folder) ([]types.BreadcrumbItem, error) {
	segments := strings.Split(strings.TrimPrefix(f.Path, "/"), "/")
	prefixes := make([]string, 0, len(segments))
	path := ""

	for _, seg := range segments {
		path += "/" + seg
		prefixes = append(prefixes, path)
	}

	var ancestors []model.Folder
	if err := gdb.Where("owner_id = ? AND path IN ?", f.OwnerID, prefixes).Find(&ancestors).Error; err != nil {
		return nil, fmt.Errorf("load ancestors: %w", err)
	}

	sort.Slice(ancestors, func(i, j int) bool {
		return len(ancestors[i].Path) < len(ancestors[j].Path)
	})

	crumb := make([]types.BreadcrumbItem, 0, len(ancestors))
	for i := range ancestors {
		crumb = append(crumb, types.BreadcrumbItem{
			ID:   ancestors[i].ID,
			Name: ancestors[i].Name,
			Path: ancestors[i].Path,
		})
	}

	return crumb, nil
}

// List 列出某一级的子文件夹，parentID 为空表示根级.
func (s *FolderService) List(ctx context.Context, owner string, parentID *string) (*types.ListFoldersResponse, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	var folders []model.Folder
	if err := siblingFolderQuery(s.dbc.GetDB(), owner, parentID).Order("name").Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	resp := &types.ListFoldersResponse{Folders: make([]types.FolderInfo, 0, len(folders)), Total: len(folders)}
	for i := range folders {
		resp.Folders = append(resp.Folders, folderInfo(&folders[i]))
	}

	return resp, nil
}

// ListAll 列出用户的全部文件夹，按路径排序便于客户端重建树.
func (s *FolderService) ListAll(ctx context.Context, owner string) (*types.ListFoldersResponse, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	var folders []model.Folder
	if err := s.dbc.GetDB().Where("owner_id = ?", owner).Order("path").Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	resp := &types.ListFoldersResponse{Folders: make([]types.FolderInfo, 0, len(folders)), Total: len(folders)}
	for i := range folders {
		resp.Folders = append(resp.Folders, folderInfo(&folders[i]))
	}

	return resp, nil
}

// folderInfo 转换为响应结构.
func folderInfo(f *model.Folder) types.FolderInfo {
	return types.FolderInfo{
		ID:        f.ID,
		Name:      f.Name,
		ParentID:  f.ParentID,
		OwnerID:   f.OwnerID,
		Path:      f.Path,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}
