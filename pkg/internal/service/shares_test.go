package service

import (
	"context"
	"errors"
	"testing"

	"github.com/opshub/opsvault/pkg/internal/types"
)

func newShareEnv(t *testing.T) (*ShareService, *FileService, *FolderService) {
	t.Helper()

	dbc := newTestDB(t)
	blob := newFakeBlob()
	mustUser(t, dbc, owner, "Alice")
	mustUser(t, dbc, "bob@example.com", "Bob")

	return newShareServiceWith(dbc, nil),
		newFileServiceWith(dbc, blob, nil, nil),
		newFolderServiceWith(dbc, blob, nil)
}

func TestGrantShareValidation(t *testing.T) {
	svc, files, folders := newShareEnv(t)
	ctx := context.Background()

	fileID := uploadTestFile(t, files, owner, "a.txt", nil, "x")
	dir := mustFolder(t, folders, "docs", nil)

	// 目标必须恰好一个
	for _, req := range []*types.GrantShareRequest{
		{SharedWith: "bob@example.com", Permission: "view"},
		{FileID: &fileID, FolderID: &dir.ID, SharedWith: "bob@example.com", Permission: "view"},
	} {
		if _, err := svc.Grant(ctx, owner, req); !errors.Is(err, ErrValidation) {
			t.Errorf("xor violation err = %v, want ErrValidation", err)
		}
	}

	// 权限取值
	if _, err := svc.Grant(ctx, owner, &types.GrantShareRequest{FileID: &fileID, SharedWith: "bob@example.com", Permission: "admin"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad permission err = %v, want ErrValidation", err)
	}

	// 不能授权给自己
	if _, err := svc.Grant(ctx, owner, &types.GrantShareRequest{FileID: &fileID, SharedWith: owner, Permission: "view"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("self share err = %v, want ErrValidation", err)
	}

	// 被授权人必须已注册
	if _, err := svc.Grant(ctx, owner, &types.GrantShareRequest{FileID: &fileID, SharedWith: "ghost@example.com", Permission: "view"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown grantee err = %v, want ErrNotFound", err)
	}

	// 目标必须归授权人所有
	if _, err := svc.Grant(ctx, "bob@example.com", &types.GrantShareRequest{FileID: &fileID, SharedWith: owner, Permission: "view"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("non-owner grant err = %v, want ErrNotFound", err)
	}
}

func TestGrantShareUpsertsPermission(t *testing.T) {
	svc, files, _ := newShareEnv(t)
	ctx := context.Background()

	fileID := uploadTestFile(t, files, owner, "a.txt", nil, "x")

	first, err := svc.Grant(ctx, owner, &types.GrantShareRequest{FileID: &fileID, SharedWith: "bob@example.com", Permission: "view"})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	second, err := svc.Grant(ctx, owner, &types.GrantShareRequest{FileID: &fileID, SharedWith: "bob@example.com", Permission: "edit"})
	if err != nil {
		t.Fatalf("re-grant: %v", err)
	}

	// 同一目标同一被授权人只保留一行，重复授权只改权限
	if second.ID != first.ID {
		t.Fatalf("re-grant created new row: %s != %s", second.ID, first.ID)
	}

	if second.Permission != "edit" {
		t.Fatalf("permission = %q, want edit", second.Permission)
	}

	list, err := svc.ListSharesForTarget(ctx, owner, &fileID, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if list.Total != 1 || list.Shares[0].Permission != "edit" {
		t.Fatalf("target shares = %+v", list.Shares)
	}
}

func TestRevokeShareOnlyByGrantor(t *testing.T) {
	svc, files, _ := newShareEnv(t)
	ctx := context.Background()

	fileID := uploadTestFile(t, files, owner, "a.txt", nil, "x")

	share, err := svc.Grant(ctx, owner, &types.GrantShareRequest{FileID: &fileID, SharedWith: "bob@example.com", Permission: "view"})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	// 被授权人不能撤销
	if err := svc.Revoke(ctx, "bob@example.com", share.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("grantee revoke err = %v, want ErrNotFound", err)
	}

	if err := svc.Revoke(ctx, owner, share.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if err := svc.Revoke(ctx, owner, share.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second revoke err = %v, want ErrNotFound", err)
	}
}

func TestListSharedWithMe(t *testing.T) {
	svc, files, folders := newShareEnv(t)
	ctx := context.Background()

	fileID := uploadTestFile(t, files, owner, "report.txt", nil, "x")
	dir := mustFolder(t, folders, "docs", nil)

	if _, err := svc.Grant(ctx, owner, &types.GrantShareRequest{FileID: &fileID, SharedWith: "bob@example.com", Permission: "view"}); err != nil {
		t.Fatalf("grant file: %v", err)
	}

	if _, err := svc.Grant(ctx, owner, &types.GrantShareRequest{FolderID: &dir.ID, SharedWith: "bob@example.com", Permission: "edit"}); err != nil {
		t.Fatalf("grant folder: %v", err)
	}

	list, err := svc.ListSharedWithMe(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if list.Total != 2 {
		t.Fatalf("total = %d, want 2", list.Total)
	}

	names := map[string]bool{}
	for _, sh := range list.Shares {
		names[sh.TargetName] = true
	}

	if !names["report.txt"] || !names["docs"] {
		t.Fatalf("target names = %+v", names)
	}

	// 所有者自己没有被授权的条目
	own, err := svc.ListSharedWithMe(ctx, owner)
	if err != nil {
		t.Fatalf("owner list: %v", err)
	}

	if own.Total != 0 {
		t.Fatalf("owner total = %d, want 0", own.Total)
	}
}

func TestCanAccess(t *testing.T) {
	svc, files, folders := newShareEnv(t)
	ctx := context.Background()

	mustUser(t, files.dbc, "eve@example.com", "Eve")

	fileID := uploadTestFile(t, files, owner, "a.txt", nil, "x")
	dir := mustFolder(t, folders, "docs", nil)
	inner := uploadTestFile(t, files, owner, "inner.txt", &dir.ID, "y")

	if _, err := svc.Grant(ctx, owner, &types.GrantShareRequest{FolderID: &dir.ID, SharedWith: "bob@example.com", Permission: "view"}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	cases := []struct {
		name     string
		user     string
		fileID   *string
		folderID *string
		want     bool
	}{
		{"owner file", owner, &fileID, nil, true},
		{"owner folder", owner, nil, &dir.ID, true},
		{"grantee folder", "bob@example.com", nil, &dir.ID, true},
		// 文件夹授权不向其中文件传递
		{"grantee inner file", "bob@example.com", &inner, nil, false},
		{"stranger file", "eve@example.com", &fileID, nil, false},
	}

	for _, tc := range cases {
		got, err := svc.CanAccess(ctx, tc.user, tc.fileID, tc.folderID)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}

		if got != tc.want {
			t.Errorf("%s = %v, want %v", tc.name, got, tc.want)
		}
	}

	missing := "fl_missing"
	if got, err := svc.CanAccess(ctx, owner, &missing, nil); err != nil || got {
		t.Fatalf("missing target = %v, %v", got, err)
	}
}
