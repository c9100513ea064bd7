package service

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/opshub/opsvault/pkg/internal/model"
	"github.com/opshub/opsvault/pkg/internal/types"
)

const owner = "alice@example.com"

func newFolderEnv(t *testing.T) (*FolderService, *FileService, *fakeBlob) {
	t.Helper()

	dbc := newTestDB(t)
	blob := newFakeBlob()
	mustUser(t, dbc, owner, "Alice")

	return newFolderServiceWith(dbc, blob, nil), newFileServiceWith(dbc, blob, nil, nil), blob
}

func mustFolder(t *testing.T, svc *FolderService, name string, parentID *string) *types.FolderInfo {
	t.Helper()

	info, err := svc.Create(context.Background(), owner, &types.CreateFolderRequest{Name: name, ParentID: parentID})
	if err != nil {
		t.Fatalf("create folder %s: %v", name, err)
	}

	return info
}

func TestCreateFolderBuildsPath(t *testing.T) {
	svc, _, _ := newFolderEnv(t)
	ctx := context.Background()

	root := mustFolder(t, svc, "ops", nil)
	if root.Path != "/ops" {
		t.Fatalf("root path = %q, want /ops", root.Path)
	}

	child := mustFolder(t, svc, "runbooks", &root.ID)
	if child.Path != "/ops/runbooks" {
		t.Fatalf("child path = %q, want /ops/runbooks", child.Path)
	}

	// 同级重名拒绝
	if _, err := svc.Create(ctx, owner, &types.CreateFolderRequest{Name: "runbooks", ParentID: &root.ID}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate sibling err = %v, want ErrConflict", err)
	}

	// 不同层级允许重名
	if _, err := svc.Create(ctx, owner, &types.CreateFolderRequest{Name: "runbooks"}); err != nil {
		t.Fatalf("same name at root: %v", err)
	}

	// 父级不存在
	missing := "fd_missing"
	if _, err := svc.Create(ctx, owner, &types.CreateFolderRequest{Name: "x", ParentID: &missing}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing parent err = %v, want ErrNotFound", err)
	}
}

func TestCreateFolderRejectsBadNames(t *testing.T) {
	svc, _, _ := newFolderEnv(t)
	ctx := context.Background()

	for _, name := range []string{"", "  ", "a/b", `a\b`} {
		if _, err := svc.Create(ctx, owner, &types.CreateFolderRequest{Name: name}); !errors.Is(err, ErrValidation) {
			t.Errorf("name %q err = %v, want ErrValidation", name, err)
		}
	}
}

func TestRenameFolderRewritesSubtree(t *testing.T) {
	svc, files, _ := newFolderEnv(t)
	ctx := context.Background()

	a := mustFolder(t, svc, "a", nil)
	b := mustFolder(t, svc, "b", &a.ID)
	c := mustFolder(t, svc, "c", &b.ID)
	uploadTestFile(t, files, owner, "readme.txt", &c.ID, "hi")

	renamed, err := svc.Rename(ctx, owner, a.ID, "archive")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}

	if renamed.Path != "/archive" {
		t.Fatalf("renamed path = %q, want /archive", renamed.Path)
	}

	got, err := svc.GetWithBreadcrumb(ctx, owner, c.ID)
	if err != nil {
		t.Fatalf("get c: %v", err)
	}

	if got.Folder.Path != "/archive/b/c" {
		t.Fatalf("descendant path = %q, want /archive/b/c", got.Folder.Path)
	}

	// 面包屑沿新路径
	wantCrumbs := []string{"/archive", "/archive/b", "/archive/b/c"}
	if len(got.Breadcrumb) != len(wantCrumbs) {
		t.Fatalf("breadcrumb len = %d, want %d", len(got.Breadcrumb), len(wantCrumbs))
	}

	for i, w := range wantCrumbs {
		if got.Breadcrumb[i].Path != w {
			t.Errorf("breadcrumb[%d] = %q, want %q", i, got.Breadcrumb[i].Path, w)
		}
	}
}

func TestRenameFolderConflicts(t *testing.T) {
	svc, _, _ := newFolderEnv(t)
	ctx := context.Background()

	a := mustFolder(t, svc, "a", nil)
	mustFolder(t, svc, "b", nil)

	if _, err := svc.Rename(ctx, owner, a.ID, "b"); !errors.Is(err, ErrConflict) {
		t.Fatalf("rename onto sibling err = %v, want ErrConflict", err)
	}

	// 重命名为当前名是无操作
	if _, err := svc.Rename(ctx, owner, a.ID, "a"); err != nil {
		t.Fatalf("rename to same name: %v", err)
	}

	if _, err := svc.Rename(ctx, owner, "fd_missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rename missing err = %v, want ErrNotFound", err)
	}
}

func TestRenameFolderPrefixSafety(t *testing.T) {
	svc, _, _ := newFolderEnv(t)
	ctx := context.Background()

	// /a 与 /ab 互为前缀陷阱，重命名 /a 不得触碰 /ab
	a := mustFolder(t, svc, "a", nil)
	ab := mustFolder(t, svc, "ab", nil)
	mustFolder(t, svc, "sub", &ab.ID)

	if _, err := svc.Rename(ctx, owner, a.ID, "z"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	got, err := svc.GetWithBreadcrumb(ctx, owner, ab.ID)
	if err != nil {
		t.Fatalf("get ab: %v", err)
	}

	if got.Folder.Path != "/ab" {
		t.Fatalf("unrelated path = %q, want /ab", got.Folder.Path)
	}
}

func TestDeleteFolderCascades(t *testing.T) {
	svc, files, blob := newFolderEnv(t)
	ctx := context.Background()

	grantee := "bob@example.com"
	mustUser(t, files.dbc, grantee, "Bob")

	a := mustFolder(t, svc, "a", nil)
	b := mustFolder(t, svc, "b", &a.ID)
	f1 := uploadTestFile(t, files, owner, "one.txt", &a.ID, "1")
	uploadTestFile(t, files, owner, "two.txt", &b.ID, "22")

	shares := newShareServiceWith(files.dbc, nil)
	if _, err := shares.Grant(ctx, owner, &types.GrantShareRequest{FileID: &f1, SharedWith: grantee, Permission: "view"}); err != nil {
		t.Fatalf("grant file: %v", err)
	}

	if _, err := shares.Grant(ctx, owner, &types.GrantShareRequest{FolderID: &b.ID, SharedWith: grantee, Permission: "view"}); err != nil {
		t.Fatalf("grant folder: %v", err)
	}

	resp, err := svc.Delete(ctx, owner, a.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}

	if resp.FoldersDeleted != 2 || resp.FilesDeleted != 2 {
		t.Fatalf("deleted = %d folders / %d files, want 2/2", resp.FoldersDeleted, resp.FilesDeleted)
	}

	if blob.count() != 0 {
		t.Fatalf("blobs left = %d, want 0", blob.count())
	}

	gdb := files.dbc.GetDB()

	var folders, filesLeft, sharesLeft int64
	gdb.Model(&model.Folder{}).Count(&folders)
	gdb.Model(&model.File{}).Count(&filesLeft)
	gdb.Model(&model.Share{}).Count(&sharesLeft)

	if folders != 0 || filesLeft != 0 || sharesLeft != 0 {
		t.Fatalf("rows left folders=%d files=%d shares=%d, want all 0", folders, filesLeft, sharesLeft)
	}
}

func TestDeleteFolderBlobFailureIsNonFatal(t *testing.T) {
	svc, files, blob := newFolderEnv(t)
	ctx := context.Background()

	a := mustFolder(t, svc, "a", nil)
	uploadTestFile(t, files, owner, "stuck.txt", &a.ID, "x")

	// 标记所有对象删除失败
	blob.mu.Lock()
	for k := range blob.objects {
		blob.failDelete[k] = true
	}
	blob.mu.Unlock()

	resp, err := svc.Delete(ctx, owner, a.ID)
	if err != nil {
		t.Fatalf("delete with blob failure: %v", err)
	}

	if resp.FilesDeleted != 1 {
		t.Fatalf("files deleted = %d, want 1", resp.FilesDeleted)
	}

	var filesLeft int64
	files.dbc.GetDB().Model(&model.File{}).Count(&filesLeft)

	if filesLeft != 0 {
		t.Fatalf("metadata rows left = %d, want 0", filesLeft)
	}
}

func TestGetWithBreadcrumbVisibility(t *testing.T) {
	svc, files, _ := newFolderEnv(t)
	ctx := context.Background()

	grantee := "bob@example.com"
	stranger := "eve@example.com"
	mustUser(t, files.dbc, grantee, "Bob")
	mustUser(t, files.dbc, stranger, "Eve")

	a := mustFolder(t, svc, "a", nil)
	b := mustFolder(t, svc, "b", &a.ID)

	shares := newShareServiceWith(files.dbc, nil)
	if _, err := shares.Grant(ctx, owner, &types.GrantShareRequest{FolderID: &b.ID, SharedWith: grantee, Permission: "view"}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	// 被授权人可见，但面包屑只含该文件夹
	got, err := svc.GetWithBreadcrumb(ctx, grantee, b.ID)
	if err != nil {
		t.Fatalf("grantee get: %v", err)
	}

	if len(got.Breadcrumb) != 1 || got.Breadcrumb[0].ID != b.ID {
		t.Fatalf("grantee breadcrumb = %+v, want only target folder", got.Breadcrumb)
	}

	// 陌生人与不存在不可区分
	if _, err := svc.GetWithBreadcrumb(ctx, stranger, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stranger err = %v, want ErrNotFound", err)
	}
}

func TestSiblingUniquenessHasConstraint(t *testing.T) {
	svc, files, _ := newFolderEnv(t)

	a := mustFolder(t, svc, "a", nil)
	gdb := files.dbc.GetDB()

	// 绕过服务层直接插入同级同名行，唯一索引必须拒绝，
	// 读已提交隔离级别下并发创建才不会双双通过计数检查
	first := model.Folder{ID: "fd_dup1", Name: "b", ParentID: &a.ID, OwnerID: owner, Path: "/a/b"}
	if err := gdb.Create(&first).Error; err != nil {
		t.Fatalf("first folder insert: %v", err)
	}

	second := model.Folder{ID: "fd_dup2", Name: "b", ParentID: &a.ID, OwnerID: owner, Path: "/a/b"}
	if err := gdb.Create(&second).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("duplicate folder insert err = %v, want ErrDuplicatedKey", err)
	}

	f1 := model.File{ID: "fl_dup1", Name: "x.txt", FolderID: &a.ID, OwnerID: owner, BlobKey: "k1"}
	if err := gdb.Create(&f1).Error; err != nil {
		t.Fatalf("first file insert: %v", err)
	}

	f2 := model.File{ID: "fl_dup2", Name: "x.txt", FolderID: &a.ID, OwnerID: owner, BlobKey: "k2"}
	if err := gdb.Create(&f2).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("duplicate file insert err = %v, want ErrDuplicatedKey", err)
	}

	// 不同 owner 的同级同名互不影响
	mustUser(t, files.dbc, "bob@example.com", "Bob")

	other := model.Folder{ID: "fd_dup3", Name: "b", ParentID: &a.ID, OwnerID: "bob@example.com", Path: "/a/b"}
	if err := gdb.Create(&other).Error; err != nil {
		t.Fatalf("other owner insert: %v", err)
	}
}

func TestListFolders(t *testing.T) {
	svc, _, _ := newFolderEnv(t)
	ctx := context.Background()

	a := mustFolder(t, svc, "a", nil)
	mustFolder(t, svc, "b", nil)
	mustFolder(t, svc, "inner", &a.ID)

	rootLevel, err := svc.List(ctx, owner, nil)
	if err != nil {
		t.Fatalf("list root: %v", err)
	}

	if rootLevel.Total != 2 {
		t.Fatalf("root level total = %d, want 2", rootLevel.Total)
	}

	inner, err := svc.List(ctx, owner, &a.ID)
	if err != nil {
		t.Fatalf("list inner: %v", err)
	}

	if inner.Total != 1 || inner.Folders[0].Name != "inner" {
		t.Fatalf("inner level = %+v", inner.Folders)
	}

	all, err := svc.ListAll(ctx, owner)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}

	if all.Total != 3 {
		t.Fatalf("all total = %d, want 3", all.Total)
	}

	// 按路径排序
	if all.Folders[0].Path != "/a" || all.Folders[1].Path != "/a/inner" {
		t.Fatalf("ordering = %q, %q", all.Folders[0].Path, all.Folders[1].Path)
	}
}
